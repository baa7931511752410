package supabase

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hitoshi/learnhub/internal/model"
)

func TestFileStorage_SaveLoadRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileStorage(path, nil)

	if s.Load() != nil {
		t.Fatal("expected nil before save")
	}

	session := &model.AuthSession{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		User:         model.Identity{ID: "user-1", Email: "a@example.com"},
	}
	s.Save(session)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("session file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	loaded := s.Load()
	if loaded == nil || loaded.AccessToken != "access" || loaded.User.ID != "user-1" {
		t.Fatalf("unexpected loaded session: %+v", loaded)
	}
	if !loaded.ExpiresAt.Equal(session.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", loaded.ExpiresAt, session.ExpiresAt)
	}

	s.Remove()
	if s.Load() != nil {
		t.Error("expected nil after remove")
	}
	// 2回目の削除はエラーにならない
	s.Remove()
}

// 壊れたファイルはログに記録してnilを返す（パニックしない）
func TestFileStorage_CorruptFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := NewFileStorage(path, nil).Load(); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestFileStorage_SaveNilRemoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStorage(path, nil)
	s.Save(&model.AuthSession{AccessToken: "a"})
	s.Save(nil)
	if s.Load() != nil {
		t.Error("expected nil after Save(nil)")
	}
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	s := NewMemoryStorage()
	original := &model.AuthSession{AccessToken: "a"}
	s.Save(original)
	original.AccessToken = "mutated"

	loaded := s.Load()
	if loaded.AccessToken != "a" {
		t.Errorf("stored session was aliased: %q", loaded.AccessToken)
	}
	loaded.AccessToken = "mutated-again"
	if s.Load().AccessToken != "a" {
		t.Error("loaded session was aliased")
	}
}
