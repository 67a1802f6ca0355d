package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lucarp/todo/internal/model"
)

// PostgresAccessTokenRepo はPostgreSQLを使用したアクセストークンリポジトリ。
type PostgresAccessTokenRepo struct {
	db *sql.DB
}

// NewPostgresAccessTokenRepo はPostgresAccessTokenRepoを生成する。
func NewPostgresAccessTokenRepo(db *sql.DB) *PostgresAccessTokenRepo {
	return &PostgresAccessTokenRepo{db: db}
}

// Create はアクセストークンを作成する。
func (r *PostgresAccessTokenRepo) Create(ctx context.Context, token *model.AccessToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_tokens (id, token, task_id, message_id, target_email,
		                            created_by_user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		token.ID, token.Token, token.TaskID, token.MessageID, token.TargetEmail,
		token.CreatedByUserID, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create access token: %w", err)
	}
	return nil
}

// FindByToken はトークン文字列でアクセストークンを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresAccessTokenRepo) FindByToken(ctx context.Context, tokenValue string) (*model.AccessToken, error) {
	token := &model.AccessToken{}
	var usedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, task_id, message_id, target_email, created_by_user_id,
		        expires_at, used_at, created_at
		 FROM access_tokens WHERE token = $1`,
		tokenValue,
	).Scan(
		&token.ID, &token.Token, &token.TaskID, &token.MessageID, &token.TargetEmail,
		&token.CreatedByUserID, &token.ExpiresAt, &usedAt, &token.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find access token: %w", err)
	}

	if usedAt.Valid {
		token.UsedAt = &usedAt.Time
	}

	return token, nil
}

// MarkUsed は未使用のトークンに限り使用済み時刻を記録する。
// used_at IS NULL の行だけを条件付きで更新するため、同一トークンに対する
// 同時アクセスでも使用済みにできるのは高々1リクエストとなる。
func (r *PostgresAccessTokenRepo) MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE access_tokens SET used_at = $2
		 WHERE id = $1 AND used_at IS NULL`,
		id, usedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark access token used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ListByMessageID は指定メッセージに対して発行されたトークン一覧を
// created_at降順で返す。
func (r *PostgresAccessTokenRepo) ListByMessageID(ctx context.Context, messageID string) ([]*model.AccessToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, token, task_id, message_id, target_email, created_by_user_id,
		        expires_at, used_at, created_at
		 FROM access_tokens
		 WHERE message_id = $1
		 ORDER BY created_at DESC`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list access tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*model.AccessToken
	for rows.Next() {
		token := &model.AccessToken{}
		var usedAt sql.NullTime

		if err := rows.Scan(
			&token.ID, &token.Token, &token.TaskID, &token.MessageID, &token.TargetEmail,
			&token.CreatedByUserID, &token.ExpiresAt, &usedAt, &token.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan access token: %w", err)
		}

		if usedAt.Valid {
			token.UsedAt = &usedAt.Time
		}

		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate access tokens: %w", err)
	}

	return tokens, nil
}

// DeleteExpiredBefore は指定時刻より前に期限切れとなったトークンを削除し、
// 削除件数を返す。
func (r *PostgresAccessTokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE expires_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired access tokens: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted access tokens: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ AccessTokenRepository = (*PostgresAccessTokenRepo)(nil)
