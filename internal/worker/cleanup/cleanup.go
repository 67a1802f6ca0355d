// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を過ぎて期限切れのままの共有アクセストークンと、
// 有効期限を過ぎたセッションを定期バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TokenDeleter は期限切れアクセストークンの一括削除インターフェース。
// repository.AccessTokenRepositoryの部分集合として定義する。
type TokenDeleter interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionDeleter は期限切れセッションの一括削除インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenMetrics は削除件数の記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type TokenMetrics interface {
	RecordTokensDeleted(count int64)
}

// CleanupJob は期限切れトークンとセッションの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
// 有効期限内のトークンには決して触れない。削除対象は期限切れから
// RetentionDays日が経過した行のみで、期限切れ直後のトークンは
// 「期限切れ」エラー表示のために保持期間中は残される。
type CleanupJob struct {
	tokens        TokenDeleter
	sessions      SessionDeleter
	collector     TokenMetrics // nilの場合はメトリクスを記録しない
	logger        *slog.Logger
	RetentionDays int // 期限切れトークンの保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は30日。
func NewCleanupJob(tokens TokenDeleter, sessions SessionDeleter, collector TokenMetrics, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		tokens:        tokens,
		sessions:      sessions,
		collector:     collector,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run は保持期間を超過した期限切れトークンと期限切れセッションを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -j.RetentionDays)

	deletedTokens, err := j.tokens.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("トークンクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("トークンクリーンアップの実行に失敗: %w", err)
	}

	if j.collector != nil {
		j.collector.RecordTokensDeleted(deletedTokens)
	}

	deletedSessions, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_tokens", deletedTokens),
		slog.Int64("deleted_sessions", deletedSessions),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
