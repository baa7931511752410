package expiry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/learnhub/internal/metrics"
)

// --- モック定義 ---

type mockExpirer struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (m *mockExpirer) ExpireOverdue(ctx context.Context) (int64, error) {
	m.calls.Add(1)
	return m.n, m.err
}

type recordingMetrics struct {
	metrics.Nop
	expired []int64
}

func (m *recordingMetrics) RecordSubscriptionsExpired(count int64) {
	m.expired = append(m.expired, count)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestJob_Run_RecordsCount(t *testing.T) {
	var buf bytes.Buffer
	m := &recordingMetrics{}
	job := NewJob(&mockExpirer{n: 3}, m, newTestLogger(&buf))

	n, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Run() = %d, want 3", n)
	}
	if len(m.expired) != 1 || m.expired[0] != 3 {
		t.Errorf("metrics = %v, want [3]", m.expired)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}
	if entry["expired_count"] != float64(3) {
		t.Errorf("expired_count = %v", entry["expired_count"])
	}
}

// 対象がない場合もエラーにならない
func TestJob_Run_NothingToExpire(t *testing.T) {
	var buf bytes.Buffer
	job := NewJob(&mockExpirer{}, nil, newTestLogger(&buf))

	if n, err := job.Run(context.Background()); err != nil || n != 0 {
		t.Errorf("Run() = %d, %v; want 0, nil", n, err)
	}
}

func TestJob_Run_Error(t *testing.T) {
	var buf bytes.Buffer
	m := &recordingMetrics{}
	job := NewJob(&mockExpirer{err: errors.New("connection reset")}, m, newTestLogger(&buf))

	_, err := job.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("Run() error = %v", err)
	}
	if len(m.expired) != 0 {
		t.Errorf("metrics should not be recorded on failure: %v", m.expired)
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("expected error log, got %s", buf.String())
	}
}

func TestJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	expirer := &mockExpirer{}
	job := NewJob(expirer, nil, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for expirer.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if got := expirer.calls.Load(); got != 1 {
		t.Errorf("ExpireOverdue calls = %d, want 1", got)
	}
}
