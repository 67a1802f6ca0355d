package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lucarp/todo/internal/model"
)

// PostgresPublicContentRepo はトークン検証後の公開閲覧専用アクセサ。
// 所有ユーザーによるスコープを行わない唯一のリポジトリであり、
// 渡すIDは必ず検証済みトークンが運ぶtask_id / message_idに限る。
type PostgresPublicContentRepo struct {
	db *sql.DB
}

// NewPostgresPublicContentRepo はPostgresPublicContentRepoを生成する。
func NewPostgresPublicContentRepo(db *sql.DB) *PostgresPublicContentRepo {
	return &PostgresPublicContentRepo{db: db}
}

// FindTaskByID はタスクをIDで取得する。見つからない場合はnilを返す。
func (r *PostgresPublicContentRepo) FindTaskByID(ctx context.Context, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, status, deadline, tags, sort_order,
		        created_at, updated_at
		 FROM tasks WHERE id = $1`,
		id,
	)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("共有タスクの取得に失敗しました: %w", err)
	}
	return task, nil
}

// FindMessageByID はメッセージをIDで取得する。見つからない場合はnilを返す。
func (r *PostgresPublicContentRepo) FindMessageByID(ctx context.Context, id string) (*model.Message, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, task_id, user_id, sender_email, content, is_external,
		        access_token_id, created_at
		 FROM messages WHERE id = $1`,
		id,
	)

	message, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("共有メッセージの取得に失敗しました: %w", err)
	}
	return message, nil
}

// compile-time interface check
var _ PublicContentRepository = (*PostgresPublicContentRepo)(nil)
