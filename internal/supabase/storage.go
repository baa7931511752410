package supabase

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/hitoshi/learnhub/internal/model"
)

// SessionStorage は認証セッションの永続化先。
// 実装はエラーをログに記録して握りつぶしてよい（ストレージ障害でログイン不能にしない）。
type SessionStorage interface {
	Load() *model.AuthSession
	Save(session *model.AuthSession)
	Remove()
}

// FileStorage はJSONファイル1つにセッションを保存するSessionStorage。
// ファイルはパーミッション0600で作成する。
type FileStorage struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileStorage はFileStorageを生成する。
func NewFileStorage(path string, logger *slog.Logger) *FileStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStorage{path: path, logger: logger}
}

// Load は保存済みセッションを読み込む。存在しない・壊れている場合はnilを返す。
func (s *FileStorage) Load() *model.AuthSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.logger.Error("storage getItem error", slog.String("path", s.path), slog.String("error", err.Error()))
		return nil
	}

	var session model.AuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Error("storage getItem error", slog.String("path", s.path), slog.String("error", err.Error()))
		return nil
	}
	if session.AccessToken == "" {
		return nil
	}
	return &session
}

// Save はセッションを書き込む。一時ファイルに書いてからrenameする。
func (s *FileStorage) Save(session *model.AuthSession) {
	if session == nil {
		s.Remove()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(session)
	if err != nil {
		s.logger.Error("storage setItem error", slog.String("error", err.Error()))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.logger.Error("storage setItem error", slog.String("path", s.path), slog.String("error", err.Error()))
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.logger.Error("storage setItem error", slog.String("path", s.path), slog.String("error", err.Error()))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("storage setItem error", slog.String("path", s.path), slog.String("error", err.Error()))
	}
}

// Remove は保存済みセッションを削除する。
func (s *FileStorage) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("storage removeItem error", slog.String("path", s.path), slog.String("error", err.Error()))
	}
}

// MemoryStorage はプロセス内メモリのみに保持するSessionStorage。
type MemoryStorage struct {
	mu      sync.Mutex
	session *model.AuthSession
}

// NewMemoryStorage はMemoryStorageを生成する。
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Load() *model.AuthSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

func (s *MemoryStorage) Save(session *model.AuthSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session == nil {
		s.session = nil
		return
	}
	cp := *session
	s.session = &cp
}

func (s *MemoryStorage) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

// compile-time interface check
var (
	_ SessionStorage = (*FileStorage)(nil)
	_ SessionStorage = (*MemoryStorage)(nil)
)
