package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lucarp/todo/internal/model"
)

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Create はメッセージを作成する。
func (r *PostgresMessageRepo) Create(ctx context.Context, message *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, task_id, user_id, sender_email, content,
		                       is_external, access_token_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		message.ID, message.TaskID, nullStringPtr(message.UserID),
		nullString(message.SenderEmail), message.Content,
		message.IsExternal, nullStringPtr(message.AccessTokenID), message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("メッセージの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByTaskID はタスクのメッセージ一覧をcreated_at昇順で返す。
func (r *PostgresMessageRepo) ListByTaskID(ctx context.Context, taskID string) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, task_id, user_id, sender_email, content, is_external,
		        access_token_id, created_at
		 FROM messages
		 WHERE task_id = $1
		 ORDER BY created_at ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("メッセージ一覧の読み取りに失敗しました: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メッセージ一覧の走査に失敗しました: %w", err)
	}

	return messages, nil
}

// CountByAccessTokenID は指定アクセストークン経由で投稿されたメッセージ数を返す。
func (r *PostgresMessageRepo) CountByAccessTokenID(ctx context.Context, accessTokenID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE access_token_id = $1`,
		accessTokenID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("返信数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// scanMessage は1行分のメッセージを読み取る。
func scanMessage(row rowScanner) (*model.Message, error) {
	message := &model.Message{}
	var userID, senderEmail, accessTokenID sql.NullString

	err := row.Scan(
		&message.ID, &message.TaskID, &userID, &senderEmail,
		&message.Content, &message.IsExternal, &accessTokenID, &message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	message.UserID = nullStringPtrValue(userID)
	message.SenderEmail = nullStringValue(senderEmail)
	message.AccessTokenID = nullStringPtrValue(accessTokenID)

	return message, nil
}

// nullStringPtr は*stringをsql.NullStringに変換する。
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullStringPtrValue はsql.NullStringから*stringを取得する。
func nullStringPtrValue(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
