package auth

import (
	"context"
	"time"

	"github.com/hitoshi/learnhub/internal/model"
)

// OAuth完了待ちのデフォルト値
const (
	DefaultPollAttempts = 5
	DefaultPollInterval = time.Second
)

// SessionGetter は現在のセッションを返す。
type SessionGetter interface {
	GetSession(ctx context.Context) (*model.AuthSession, error)
}

// PollConfig はセッション確立待ちのポーリング設定。
type PollConfig struct {
	Attempts int
	Interval time.Duration
	// Sleep は試行間の待機。nilの場合はctx対応のタイマー待機を使う。
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Attempts <= 0 {
		c.Attempts = DefaultPollAttempts
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WaitForSession はセッションが確立されるまで最大Attempts回GetSessionを呼ぶ。
// 待機は試行の間だけ行い、最後の試行の後には待たない。
// GetSessionがエラーを返した場合はその時点で中断する。
// 戻り値のintは実際に行った試行回数。
func WaitForSession(ctx context.Context, getter SessionGetter, cfg PollConfig) (*model.AuthSession, int, error) {
	cfg = cfg.withDefaults()

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		session, err := getter.GetSession(ctx)
		if err != nil {
			return nil, attempt, err
		}
		if session != nil {
			return session, attempt, nil
		}
		if attempt == cfg.Attempts {
			break
		}
		if err := cfg.Sleep(ctx, cfg.Interval); err != nil {
			return nil, attempt, model.NewAuthError("Sign-in was cancelled.", err)
		}
	}
	return nil, cfg.Attempts, model.NewSessionTimeoutError(cfg.Attempts)
}
