// Package model はドメインモデルを定義する。
package model

import "time"

// Task はユーザーが管理するタスクを表す。
type Task struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Status      TaskStatus
	Deadline    *time.Time
	Tags        []string
	SortOrder   *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskStatus はタスクの進行状態を表す。
type TaskStatus string

const (
	// TaskStatusTodo は未着手のタスク状態。
	TaskStatusTodo TaskStatus = "To do"
	// TaskStatusInProgress は作業中のタスク状態。
	TaskStatusInProgress TaskStatus = "In progress"
	// TaskStatusDone は完了したタスク状態。
	TaskStatusDone TaskStatus = "Done"
)

// TaskSortKey はタスク一覧のソートキーを表す。
type TaskSortKey string

const (
	// TaskSortManual は手動並び替え順（sort_order昇順、未設定は末尾）。
	TaskSortManual TaskSortKey = "manual"
	// TaskSortCreated は作成日時降順。
	TaskSortCreated TaskSortKey = "created"
	// TaskSortDeadline は締切昇順（締切なしは末尾）。
	TaskSortDeadline TaskSortKey = "deadline"
	// TaskSortName はタスク名昇順。
	TaskSortName TaskSortKey = "name"
)
