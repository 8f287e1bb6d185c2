// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れのセッションと、保持期間を超えて更新のないカートスナップショットを
// 定期バッチで削除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// 削除対象のメトリクスラベル。
const (
	TargetSessions      = "sessions"
	TargetCartSnapshots = "cart_snapshots"
)

const defaultSnapshotRetention = 30 * 24 * time.Hour

// SessionPurger は期限切れセッションの削除インターフェース。
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SnapshotPurger は古いカートスナップショットの削除インターフェース。
type SnapshotPurger interface {
	DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recorder は削除件数の記録インターフェース。
type Recorder interface {
	RecordCleanupDeleted(target string, count int64)
}

// CleanupJob は期限切れデータの自動削除ジョブ。
// 冪等な削除処理のみを行うため、何度実行してもよい。
type CleanupJob struct {
	sessions  SessionPurger
	snapshots SnapshotPurger
	metrics   Recorder
	logger    *slog.Logger
	now       func() time.Time

	// SnapshotRetention は最終更新からカートスナップショットを保持する期間。
	SnapshotRetention time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。metricsはnilでもよい。
// デフォルトのスナップショット保持期間は30日。
func NewCleanupJob(sessions SessionPurger, snapshots SnapshotPurger, metrics Recorder, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		sessions:          sessions,
		snapshots:         snapshots,
		metrics:           metrics,
		logger:            logger,
		now:               time.Now,
		SnapshotRetention: defaultSnapshotRetention,
	}
}

// Run は期限切れセッションと古いカートスナップショットを削除する。
// 一方が失敗してももう一方は実行し、両方のエラーをまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()

	sessionErr := j.purge(ctx, TargetSessions, j.sessions.DeleteExpired)

	cutoff := start.Add(-j.SnapshotRetention)
	snapshotErr := j.purge(ctx, TargetCartSnapshots, func(ctx context.Context) (int64, error) {
		return j.snapshots.DeleteUpdatedBefore(ctx, cutoff)
	})

	if err := errors.Join(sessionErr, snapshotErr); err != nil {
		return err
	}

	j.logger.Info("cleanup job completed",
		slog.Duration("snapshot_retention", j.SnapshotRetention),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)
	return nil
}

// Start はRunを起動直後に1回、その後interval間隔で実行する。ctxがキャンセルされるまでブロックする。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *CleanupJob) runLogged(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}
}

func (j *CleanupJob) purge(ctx context.Context, target string, del func(context.Context) (int64, error)) error {
	n, err := del(ctx)
	if err != nil {
		j.logger.Error("cleanup failed",
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to clean up %s: %w", target, err)
	}

	if j.metrics != nil {
		j.metrics.RecordCleanupDeleted(target, n)
	}
	j.logger.Info("cleanup deleted rows",
		slog.String("target", target),
		slog.Int64("deleted_count", n),
	)
	return nil
}
