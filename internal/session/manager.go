// Package session は認証状態（Session Manager）とルートガードを提供する。
//
// Managerはプロセス全体で1つだけ生成し、必要なコンポーネントへ参照で渡す。
package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/hitoshi/learnhub/internal/model"
)

// State は認証状態。
// StateUnknownはInit完了前のみの状態で、Init後はAuthenticatedとAnonymousの間を遷移する。
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateAnonymous
)

// String は状態名を返す。
func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Transition は状態遷移の通知内容。
// トークン更新のようにFromとToが同じ通知も配信する。
type Transition struct {
	From    State
	To      State
	Event   model.AuthEvent
	Session *model.AuthSession
}

// AuthSource は外部認証プロバイダーへの問い合わせと状態変化通知のインターフェース。
type AuthSource interface {
	GetSession(ctx context.Context) (*model.AuthSession, error)
	OnAuthStateChange(listener model.AuthStateListener) (unsubscribe func())
}

// pendingEvent はInit実行中に届いた通知。初期問い合わせより新しいので優先する。
type pendingEvent struct {
	event   model.AuthEvent
	session *model.AuthSession
}

// Manager は「現在認証済みか」の唯一の情報源。
type Manager struct {
	source AuthSource
	logger *slog.Logger

	// deliverMu は状態更新と購読者への配信を直列化する。
	// 購読者のコールバック内から同期的に認証操作を呼んではならない。
	deliverMu sync.Mutex

	mu          sync.Mutex
	state       State
	session     *model.AuthSession
	initialized bool
	disposed    bool
	pending     *pendingEvent
	unsubscribe func()
	subscribers map[int]func(Transition)
	nextID      int
}

// NewManager はManagerを生成する。Initを呼ぶまで状態はStateUnknown。
func NewManager(source AuthSource, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		source:      source,
		logger:      logger,
		subscribers: make(map[int]func(Transition)),
	}
}

// Init は状態変化通知を購読してから既存セッションを問い合わせ、初期状態を確定する。
// 問い合わせの失敗はログに記録してStateAnonymousとして扱う。
// 戻った時点で状態がStateUnknownであることはない。2回目以降の呼び出しは現在の状態を返す。
func (m *Manager) Init(ctx context.Context) State {
	m.mu.Lock()
	if m.initialized || m.disposed {
		s := m.state
		m.mu.Unlock()
		return s
	}
	subscribed := m.unsubscribe != nil
	m.mu.Unlock()

	// 購読を先に行い、問い合わせ中の通知を取りこぼさない
	if !subscribed {
		unsubscribe := m.source.OnAuthStateChange(m.handleEvent)
		m.mu.Lock()
		if m.disposed || m.unsubscribe != nil {
			m.mu.Unlock()
			unsubscribe()
		} else {
			m.unsubscribe = unsubscribe
			m.mu.Unlock()
		}
	}

	session, err := m.source.GetSession(ctx)
	if err != nil {
		m.logger.Error("failed to check auth status",
			slog.String("error", err.Error()),
		)
		session = nil
	}

	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	if m.initialized || m.disposed {
		s := m.state
		m.mu.Unlock()
		return s
	}

	event := model.AuthEventInitialSession
	if m.pending != nil {
		event = m.pending.event
		session = m.pending.session
		m.pending = nil
	}

	t := m.apply(event, session)
	m.initialized = true
	subs := m.snapshotSubscribers()
	m.mu.Unlock()

	m.logger.Info("session initialized", slog.String("state", t.To.String()))
	deliver(subs, t)
	return t.To
}

// handleEvent はAuthSourceからの通知を受け取る。
func (m *Manager) handleEvent(event model.AuthEvent, session *model.AuthSession) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	if !m.initialized {
		m.pending = &pendingEvent{event: event, session: session}
		m.mu.Unlock()
		return
	}
	t := m.apply(event, session)
	subs := m.snapshotSubscribers()
	m.mu.Unlock()

	deliver(subs, t)
}

// apply は通知を状態に反映する。mu保持中に呼ぶ。
func (m *Manager) apply(event model.AuthEvent, session *model.AuthSession) Transition {
	to := StateAuthenticated
	if event == model.AuthEventSignedOut || session == nil {
		to = StateAnonymous
		session = nil
	}
	t := Transition{From: m.state, To: to, Event: event, Session: session}
	m.state = to
	m.session = session
	return t
}

func (m *Manager) snapshotSubscribers() []func(Transition) {
	ids := make([]int, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	// 登録順に配信する
	sort.Ints(ids)
	subs := make([]func(Transition), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, m.subscribers[id])
	}
	return subs
}

func deliver(subs []func(Transition), t Transition) {
	for _, fn := range subs {
		fn(t)
	}
}

// Subscribe は以降のすべての状態遷移を受け取るコールバックを登録し、解除関数を返す。
// 解除関数は何度呼んでもよい。Dispose後の登録は何もしない。
func (m *Manager) Subscribe(fn func(Transition)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return func() {}
	}

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

// Dispose はAuthSourceの購読を解除し、すべての購読者を破棄する。
// 以降の通知は無視される。
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.subscribers = make(map[int]func(Transition))
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// State は現在の状態を返す。
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated はルートガード向けの真偽値を返す。
// knownがfalseの間（Init完了前）はauthenticatedの値に意味はない。
func (m *Manager) Authenticated() (authenticated bool, known bool) {
	s := m.State()
	return s == StateAuthenticated, s != StateUnknown
}

// Session は現在のセッションを返す。未認証の場合はnil。
func (m *Manager) Session() *model.AuthSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}
