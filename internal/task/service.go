// Package task はタスク管理のドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucarp/todo/internal/model"
	"github.com/lucarp/todo/internal/repository"
)

// deadlineLayout は締切日の入出力形式。
const deadlineLayout = "2006-01-02"

// CreateInput はタスク作成の入力。
type CreateInput struct {
	Name        string
	Description string
	Status      string   // 空の場合は "To do"
	Deadline    string   // "2006-01-02" 形式。空の場合は締切なし
	Tags        []string
}

// UpdateInput はタスク部分更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Name        *string
	Description *string
	Status      *string
	Deadline    *string // 空文字列で締切を解除する
	Tags        *[]string
}

// Service はタスクのCRUDと並び替えを提供する。
// 全操作は認証済みユーザーのIDでスコープされる。
type Service struct {
	taskRepo repository.TaskRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(taskRepo repository.TaskRepository) *Service {
	return &Service{taskRepo: taskRepo}
}

// Create はタスクを作成する。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.NewTaskNameEmptyError()
	}

	status := model.TaskStatusTodo
	if input.Status != "" {
		parsed, err := parseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	deadline, err := parseDeadline(input.Deadline)
	if err != nil {
		return nil, err
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: input.Description,
		Status:      status,
		Deadline:    deadline,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの保存に失敗しました: %w", err)
	}

	return task, nil
}

// Get はタスクを取得する。他ユーザーのタスクは未検出として扱う。
func (s *Service) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.taskRepo.FindByUserAndID(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return task, nil
}

// List はユーザーのタスク一覧を返す。
// statusFilterが空の場合は全状態、tagFilterが空の場合は全タグを対象とする。
// sortKeyが空の場合は手動並び替え順を使用する。
func (s *Service) List(ctx context.Context, userID, statusFilter, tagFilter, sortKey string) ([]*model.Task, error) {
	var status *model.TaskStatus
	if statusFilter != "" {
		parsed, err := parseStatus(statusFilter)
		if err != nil {
			return nil, err
		}
		status = &parsed
	}

	sort := model.TaskSortManual
	if sortKey != "" {
		parsed, err := parseSortKey(sortKey)
		if err != nil {
			return nil, err
		}
		sort = parsed
	}

	tasks, err := s.taskRepo.ListByUserID(ctx, userID, status, strings.TrimSpace(tagFilter), sort)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// Update はタスクを部分更新する。
func (s *Service) Update(ctx context.Context, userID, taskID string, input UpdateInput) (*model.Task, error) {
	task, err := s.taskRepo.FindByUserAndID(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, model.NewTaskNameEmptyError()
		}
		task.Name = name
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		status, err := parseStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		task.Status = status
	}
	if input.Deadline != nil {
		deadline, err := parseDeadline(*input.Deadline)
		if err != nil {
			return nil, err
		}
		task.Deadline = deadline
	}
	if input.Tags != nil {
		tags := *input.Tags
		if tags == nil {
			tags = []string{}
		}
		task.Tags = tags
	}

	task.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}

	return task, nil
}

// Reorder はドラッグ&ドロップ後の並び順を保存する。
// orderedIDsの並びの通りにsort_orderを振り直す。
func (s *Service) Reorder(ctx context.Context, userID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	if err := s.taskRepo.Reorder(ctx, userID, orderedIDs); err != nil {
		return fmt.Errorf("並び順の保存に失敗しました: %w", err)
	}
	return nil
}

// Delete はタスクを削除する。
// 関連するメッセージと共有トークンも併せて削除される。
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	task, err := s.taskRepo.FindByUserAndID(ctx, userID, taskID)
	if err != nil {
		return fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return model.NewTaskNotFoundError(taskID)
	}

	if err := s.taskRepo.Delete(ctx, userID, taskID); err != nil {
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}
	return nil
}

// parseStatus は状態文字列を検証してTaskStatusに変換する。
func parseStatus(s string) (model.TaskStatus, error) {
	switch status := model.TaskStatus(s); status {
	case model.TaskStatusTodo, model.TaskStatusInProgress, model.TaskStatusDone:
		return status, nil
	default:
		return "", model.NewInvalidStatusError(s)
	}
}

// parseSortKey はソートキー文字列を検証してTaskSortKeyに変換する。
func parseSortKey(s string) (model.TaskSortKey, error) {
	switch key := model.TaskSortKey(s); key {
	case model.TaskSortManual, model.TaskSortCreated, model.TaskSortDeadline, model.TaskSortName:
		return key, nil
	default:
		return "", model.NewInvalidSortKeyError(s)
	}
}

// parseDeadline は締切日文字列を検証して日付に変換する。
// 空文字列は締切なしを意味する。
func parseDeadline(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	parsed, err := time.Parse(deadlineLayout, s)
	if err != nil {
		return nil, model.NewInvalidDeadlineError(s)
	}
	return &parsed, nil
}
