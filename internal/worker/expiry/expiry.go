// Package expiry は有効期限を過ぎた購読を失効させる定期ジョブを提供する。
// PostgreSQLバックエンドのワーカーでのみ実行する。
package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/learnhub/internal/metrics"
	"github.com/hitoshi/learnhub/internal/repository"
)

// Job はvalid_untilを過ぎたactiveな購読をexpiredへ更新するバッチジョブ。
// 更新対象がなければ何もしないため、何度実行してもよい。
type Job struct {
	expirer repository.SubscriptionExpirer
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewJob は新しいJobを生成する。
func NewJob(expirer repository.SubscriptionExpirer, m metrics.MetricsCollector, logger *slog.Logger) *Job {
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{expirer: expirer, metrics: m, logger: logger}
}

// Run は1回分の失効処理を実行し、更新件数を返す。
func (j *Job) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	n, err := j.expirer.ExpireOverdue(ctx)
	if err != nil {
		j.logger.Error("購読の失効処理に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}

	j.metrics.RecordSubscriptionsExpired(n)
	j.logger.Info("購読の失効処理が完了しました",
		slog.Int64("expired_count", n),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return n, nil
}

// Start は起動直後に1回、その後interval間隔でRunを実行する。
// コンテキストがキャンセルされるまでブロックする。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("購読の失効ジョブを開始しました", slog.Duration("interval", interval))

	// 失敗はRun内でログ済み。次の周期で再試行する。
	j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("購読の失効ジョブを停止しました")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}
