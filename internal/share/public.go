package share

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucarp/todo/internal/metrics"
	"github.com/lucarp/todo/internal/model"
	"github.com/lucarp/todo/internal/repository"
	"github.com/lucarp/todo/internal/security"
)

// PublicServiceConfig は公開リンクサービスの設定。
type PublicServiceConfig struct {
	// MaxReplies はトークンあたりの返信数上限。0は無制限。
	MaxReplies int
}

// SharedTask は公開閲覧用のタスク情報。
type SharedTask struct {
	ID          string
	Name        string
	Description string
}

// SharedMessage は公開閲覧用のメッセージ情報。
type SharedMessage struct {
	ID        string
	Content   string
	CreatedAt time.Time
}

// SharedTokenInfo は公開閲覧用のトークン情報。
type SharedTokenInfo struct {
	ID          string
	TargetEmail string
}

// SharedMessageView は共有リンク経由で閲覧できる内容一式。
type SharedMessageView struct {
	Task    SharedTask
	Message SharedMessage
	Token   SharedTokenInfo
}

// PublicService は共有リンク経由の匿名アクセスを処理する。
// 閲覧はトークンをワンタイム消費し、返信はトークンを消費しない。
// タスクとメッセージの参照は、検証済みトークンが保持するIDに限って
// PublicContentRepository経由で行う。
type PublicService struct {
	tokenRepo  repository.AccessTokenRepository
	msgRepo    repository.MessageRepository
	publicRepo repository.PublicContentRepository
	sanitizer  security.ContentSanitizerService
	collector  metrics.MetricsCollector
	config     PublicServiceConfig
}

// NewPublicService はPublicServiceの新しいインスタンスを生成する。
func NewPublicService(
	tokenRepo repository.AccessTokenRepository,
	msgRepo repository.MessageRepository,
	publicRepo repository.PublicContentRepository,
	sanitizer security.ContentSanitizerService,
	collector metrics.MetricsCollector,
	config PublicServiceConfig,
) *PublicService {
	return &PublicService{
		tokenRepo:  tokenRepo,
		msgRepo:    msgRepo,
		publicRepo: publicRepo,
		sanitizer:  sanitizer,
		collector:  collector,
		config:     config,
	}
}

// ViewSharedMessage は共有トークンを検証・消費し、共有内容を返す。
// 検証順序:
//  1. トークン未登録 → 一般的な未検出エラー（存在の推測を防ぐ）
//  2. 期限切れ → 期限切れエラー
//  3. 使用済み → 使用済みエラー
//  4. 条件付き更新で使用済みに遷移。同時アクセスで負けた場合は使用済み扱い
//  5. トークンが保持するIDでタスクとメッセージを取得
//
// 使用済みへの遷移後に内容の取得が失敗しても、トークンは消費されたまま残る。
func (s *PublicService) ViewSharedMessage(ctx context.Context, tokenStr string) (*SharedMessageView, error) {
	start := time.Now()
	defer func() {
		s.collector.RecordShareViewLatency(time.Since(start))
	}()

	token, err := s.tokenRepo.FindByToken(ctx, tokenStr)
	if err != nil {
		s.collector.RecordShareView("error")
		return nil, fmt.Errorf("トークンの検索に失敗しました: %w", err)
	}
	if token == nil {
		s.collector.RecordShareView("not_found")
		return nil, model.NewLinkNotFoundError()
	}

	if token.IsExpired() {
		s.collector.RecordShareView("expired")
		return nil, model.NewLinkExpiredError()
	}

	if token.IsUsed() {
		s.collector.RecordShareView("used")
		return nil, model.NewLinkAlreadyUsedError()
	}

	// 条件付き更新で未使用の行だけを使用済みにする。
	// 更新の成否が確認できない場合は安全側に倒してアクセスを拒否する。
	marked, err := s.tokenRepo.MarkUsed(ctx, token.ID, time.Now())
	if err != nil {
		s.collector.RecordShareView("error")
		slog.Error("トークンの使用済み更新に失敗", "token_id", token.ID, "error", err)
		return nil, model.NewLinkAccessFailedError()
	}
	if !marked {
		// 同時アクセスにより別のリクエストが先に消費した
		s.collector.RecordShareView("used")
		return nil, model.NewLinkAlreadyUsedError()
	}

	task, err := s.publicRepo.FindTaskByID(ctx, token.TaskID)
	if err != nil {
		s.collector.RecordShareView("error")
		slog.Error("共有タスクの取得に失敗", "token_id", token.ID, "task_id", token.TaskID, "error", err)
		return nil, model.NewLinkAccessFailedError()
	}
	if task == nil {
		s.collector.RecordShareView("not_found")
		return nil, model.NewSharedTaskNotFoundError()
	}

	msg, err := s.publicRepo.FindMessageByID(ctx, token.MessageID)
	if err != nil {
		s.collector.RecordShareView("error")
		slog.Error("共有メッセージの取得に失敗", "token_id", token.ID, "message_id", token.MessageID, "error", err)
		return nil, model.NewLinkAccessFailedError()
	}
	if msg == nil {
		s.collector.RecordShareView("not_found")
		return nil, model.NewSharedMessageNotFoundError()
	}

	s.collector.RecordShareView("success")
	slog.Info("共有メッセージを閲覧",
		"token_id", token.ID,
		"task_id", token.TaskID,
		"message_id", token.MessageID,
	)

	return &SharedMessageView{
		Task: SharedTask{
			ID:          task.ID,
			Name:        task.Name,
			Description: task.Description,
		},
		Message: SharedMessage{
			ID:        msg.ID,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		},
		Token: SharedTokenInfo{
			ID:          token.ID,
			TargetEmail: token.TargetEmail,
		},
	}, nil
}

// SubmitReply は共有リンク経由の匿名返信をタスクのスレッドに追加し、
// 保存されたメッセージを返す。
// 閲覧と異なりトークンを消費せず、使用済みかどうかも確認しない。
// 閲覧で消費済みのリンクからの返信を許可するための仕様であり、
// 存在と有効期限のみを検証する。
func (s *PublicService) SubmitReply(ctx context.Context, tokenStr, replyText string) (*model.Message, error) {
	content := strings.TrimSpace(replyText)
	if content == "" {
		return nil, model.NewReplyEmptyError()
	}

	token, err := s.tokenRepo.FindByToken(ctx, tokenStr)
	if err != nil {
		s.collector.RecordShareReply("error")
		return nil, fmt.Errorf("トークンの検索に失敗しました: %w", err)
	}
	if token == nil {
		// トークンの存在有無を外部に知らせないよう、曖昧なエラーを返す
		s.collector.RecordShareReply("not_found")
		return nil, model.NewReplyInvalidLinkError()
	}

	if token.IsExpired() {
		s.collector.RecordShareReply("expired")
		return nil, model.NewReplyLinkExpiredError()
	}

	if s.config.MaxReplies > 0 {
		count, err := s.msgRepo.CountByAccessTokenID(ctx, token.ID)
		if err != nil {
			s.collector.RecordShareReply("error")
			return nil, fmt.Errorf("返信数の確認に失敗しました: %w", err)
		}
		if count >= s.config.MaxReplies {
			s.collector.RecordShareReply("limit")
			return nil, model.NewReplyLimitReachedError()
		}
	}

	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, model.NewReplyEmptyError()
	}

	msg := &model.Message{
		ID:            uuid.New().String(),
		TaskID:        token.TaskID,
		UserID:        nil,
		SenderEmail:   token.TargetEmail,
		Content:       content,
		IsExternal:    true,
		AccessTokenID: &token.ID,
		CreatedAt:     time.Now(),
	}

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		s.collector.RecordShareReply("error")
		slog.Error("外部返信の保存に失敗", "token_id", token.ID, "task_id", token.TaskID, "error", err)
		return nil, model.NewReplySaveFailedError()
	}

	s.collector.RecordShareReply("success")
	slog.Info("外部返信を受け付けた",
		"token_id", token.ID,
		"task_id", token.TaskID,
		"message_id", msg.ID,
	)

	return msg, nil
}
