package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/lucarp/todo/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// FindByUserAndID は指定ユーザーが所有するタスクを取得する。
// 存在しない、または他ユーザーの所有の場合はnilを返す。
func (r *PostgresTaskRepo) FindByUserAndID(ctx context.Context, userID, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, status, deadline, tags, sort_order,
		        created_at, updated_at
		 FROM tasks WHERE user_id = $1 AND id = $2`,
		userID, id,
	)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	return task, nil
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, name, description, status, deadline, tags,
		                    sort_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.UserID, task.Name, nullString(task.Description),
		task.Status, nullTime(task.Deadline), pq.Array(task.Tags),
		nullInt(task.SortOrder), task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はタスクを更新する。所有ユーザーが一致する行のみ更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET
		    name = $3, description = $4, status = $5, deadline = $6,
		    tags = $7, sort_order = $8, updated_at = $9
		 WHERE user_id = $1 AND id = $2`,
		task.UserID, task.ID, task.Name, nullString(task.Description),
		task.Status, nullTime(task.Deadline), pq.Array(task.Tags),
		nullInt(task.SortOrder), task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	return nil
}

// ListByUserID はユーザーのタスク一覧を返す。
// statusがnilの場合は全状態、tagが空の場合は全タグを対象とする。
func (r *PostgresTaskRepo) ListByUserID(ctx context.Context, userID string, status *model.TaskStatus, tag string, sort model.TaskSortKey) ([]*model.Task, error) {
	query := `SELECT id, user_id, name, description, status, deadline, tags, sort_order,
	                 created_at, updated_at
	          FROM tasks WHERE user_id = $1`
	args := []any{userID}

	if status != nil {
		args = append(args, *status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if tag != "" {
		args = append(args, pq.Array([]string{tag}))
		query += fmt.Sprintf(` AND tags @> $%d`, len(args))
	}

	switch sort {
	case model.TaskSortCreated:
		query += ` ORDER BY created_at DESC`
	case model.TaskSortDeadline:
		query += ` ORDER BY deadline ASC NULLS LAST, created_at DESC`
	case model.TaskSortName:
		query += ` ORDER BY name ASC, created_at DESC`
	default:
		// manual: sort_order未設定のタスクは末尾に新しい順で並ぶ
		query += ` ORDER BY sort_order ASC NULLS LAST, created_at DESC`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("タスク一覧の読み取りに失敗しました: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タスク一覧の走査に失敗しました: %w", err)
	}

	return tasks, nil
}

// Reorder は指定ユーザーのタスクのsort_orderを並び順の通りに更新する。
// 全件を同一トランザクションで更新する。
func (r *PostgresTaskRepo) Reorder(ctx context.Context, userID string, orderedIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("並び替えトランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	for i, id := range orderedIDs {
		_, err := tx.ExecContext(ctx,
			`UPDATE tasks SET sort_order = $3, updated_at = now()
			 WHERE user_id = $1 AND id = $2`,
			userID, id, i,
		)
		if err != nil {
			return fmt.Errorf("並び順の更新に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("並び替えトランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// Delete は指定ユーザーが所有するタスクを削除する。
// 関連するmessages、access_tokensはCASCADE削除される。
func (r *PostgresTaskRepo) Delete(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	if err != nil {
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteByUserID はユーザーの全タスクを削除する。
func (r *PostgresTaskRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーのタスク削除に失敗しました: %w", err)
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通スキャンインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask は1行分のタスクを読み取る。
func scanTask(row rowScanner) (*model.Task, error) {
	task := &model.Task{}
	var description sql.NullString
	var deadline sql.NullTime
	var sortOrder sql.NullInt64
	var tags pq.StringArray

	err := row.Scan(
		&task.ID, &task.UserID, &task.Name, &description, &task.Status,
		&deadline, &tags, &sortOrder, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Description = nullStringValue(description)
	task.Tags = tags
	if deadline.Valid {
		task.Deadline = &deadline.Time
	}
	if sortOrder.Valid {
		order := int(sortOrder.Int64)
		task.SortOrder = &order
	}

	return task, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullTime は*time.Timeをsql.NullTimeに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullInt は*intをsql.NullInt64に変換する。
func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
