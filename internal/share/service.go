// Package share はタスクチャットの共有リンク機能を提供する。
// 宛先メールアドレスで始まるメッセージからワンタイム閲覧トークンを発行し、
// アカウントを持たない外部の相手がメッセージの閲覧と返信を行えるようにする。
package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
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

// notifyTimeout は通知メール送信の独立コンテキストのタイムアウト。
const notifyTimeout = 20 * time.Second

// Notifier は共有リンク通知メールの送信インターフェース。
// テスタビリティのためMailgunClientを抽象化する。
type Notifier interface {
	SendShareNotification(ctx context.Context, to, taskName, messageContent, publicURL, senderName string) error
}

// ServiceConfig は共有サービスの設定。
type ServiceConfig struct {
	BaseURL  string        // 公開リンクのベースURL
	TokenTTL time.Duration // 発行するトークンの有効期間
}

// ThreadEntry はスレッド内の1メッセージと、そのメッセージに対して
// 発行された共有トークンを表す。
type ThreadEntry struct {
	Message *model.Message
	Tokens  []*model.AccessToken
}

// PostResult はメッセージ投稿の結果を表す。
// 共有が行われなかった場合、TokenとPublicURLは空になる。
type PostResult struct {
	Message   *model.Message
	Token     string
	PublicURL string
}

// Service はタスクチャットへの投稿と共有トークンの発行を提供する。
// フロー: 宛先検出 → メッセージ保存 → トークン発行 → 通知メール（非同期）
type Service struct {
	taskRepo  repository.TaskRepository
	msgRepo   repository.MessageRepository
	tokenRepo repository.AccessTokenRepository
	userRepo  repository.UserRepository
	sanitizer security.ContentSanitizerService
	notifier  Notifier
	collector metrics.MetricsCollector
	config    ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	taskRepo repository.TaskRepository,
	msgRepo repository.MessageRepository,
	tokenRepo repository.AccessTokenRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizerService,
	notifier Notifier,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		taskRepo:  taskRepo,
		msgRepo:   msgRepo,
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
		notifier:  notifier,
		collector: collector,
		config:    config,
	}
}

// ListThread はタスクのメッセージ一覧を取得する。
// 各メッセージに対して発行済みの共有トークンも併せて返す。
// タスクの所有者以外からの参照はタスク未検出として扱う。
func (s *Service) ListThread(ctx context.Context, userID, taskID string) ([]*ThreadEntry, error) {
	task, err := s.taskRepo.FindByUserAndID(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	messages, err := s.msgRepo.ListByTaskID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}

	entries := make([]*ThreadEntry, 0, len(messages))
	for _, msg := range messages {
		tokens, err := s.tokenRepo.ListByMessageID(ctx, msg.ID)
		if err != nil {
			return nil, fmt.Errorf("共有トークン一覧の取得に失敗しました: %w", err)
		}
		entries = append(entries, &ThreadEntry{Message: msg, Tokens: tokens})
	}

	return entries, nil
}

// PostMessage はタスクのチャットにメッセージを投稿する。
// メッセージが宛先メールアドレスで始まる場合は共有トークンを発行し、
// 公開リンクを記載した通知メールを非同期で送信する。
// フロー:
//  1. タスクの所有権チェック
//  2. 宛先検出と本文の切り出し
//  3. サニタイズと空チェック
//  4. メッセージ保存（トークンより先に確定させる）
//  5. トークン発行。失敗してもメッセージは取り消さない
//  6. 通知メールの非同期送信
func (s *Service) PostMessage(ctx context.Context, userID, taskID, rawText string) (*PostResult, error) {
	// 1. 所有権チェック
	task, err := s.taskRepo.FindByUserAndID(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	// 2. 宛先検出。検出された場合は宛先を取り除いた残りが本文になる。
	// 宛先はテキストの先頭から始まる場合のみ検出するため、トリム前の原文で判定する
	content := rawText
	targetEmail, body, shared := DetectRecipient(rawText)
	if shared {
		content = body
	}

	// 3. サニタイズ後に空チェック。宛先除去後に本文が残らない投稿は拒否する
	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, model.NewMessageEmptyError()
	}

	// 4. メッセージ保存。共有時はsender_emailに宛先を記録する
	now := time.Now()
	msg := &model.Message{
		ID:         uuid.New().String(),
		TaskID:     taskID,
		UserID:     &userID,
		Content:    content,
		IsExternal: false,
		CreatedAt:  now,
	}
	if shared {
		msg.SenderEmail = targetEmail
	}

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("メッセージの保存に失敗しました: %w", err)
	}

	if !shared {
		return &PostResult{Message: msg}, nil
	}

	// 5. トークン発行。メッセージは既に確定しているため、
	// 以降の失敗はログに記録して投稿自体は成功として返す
	tokenStr, err := generateToken()
	if err != nil {
		slog.Error("共有トークンの生成に失敗",
			"task_id", taskID,
			"message_id", msg.ID,
			"error", err,
		)
		return &PostResult{Message: msg}, nil
	}

	token := &model.AccessToken{
		ID:              uuid.New().String(),
		Token:           tokenStr,
		TaskID:          taskID,
		MessageID:       msg.ID,
		TargetEmail:     targetEmail,
		CreatedByUserID: userID,
		ExpiresAt:       now.Add(s.config.TokenTTL),
		CreatedAt:       now,
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		slog.Error("共有トークンの保存に失敗",
			"task_id", taskID,
			"message_id", msg.ID,
			"error", err,
		)
		return &PostResult{Message: msg}, nil
	}

	s.collector.RecordTokenIssued()

	publicURL := fmt.Sprintf("%s/public/task/%s", strings.TrimSuffix(s.config.BaseURL, "/"), tokenStr)

	slog.Info("共有トークンを発行",
		"task_id", taskID,
		"message_id", msg.ID,
		"token_id", token.ID,
		"expires_at", token.ExpiresAt,
	)

	// 6. 通知メールは非同期で送信する。失敗してもトークンは有効なまま
	go s.notify(token, task.Name, content, publicURL, userID)

	return &PostResult{
		Message:   msg,
		Token:     tokenStr,
		PublicURL: publicURL,
	}, nil
}

// notify は共有通知メールを送信する。
// リクエストのコンテキストから切り離した独立のタイムアウト付き
// コンテキストで実行するため、呼び出し元の完了後も送信は継続される。
func (s *Service) notify(token *model.AccessToken, taskName, messageContent, publicURL, senderUserID string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	senderName := ""
	user, err := s.userRepo.FindByID(ctx, senderUserID)
	if err != nil {
		slog.Warn("送信者情報の取得に失敗", "user_id", senderUserID, "error", err)
	} else if user != nil {
		senderName = user.Name
		if senderName == "" {
			senderName = user.Email
		}
	}

	if err := s.notifier.SendShareNotification(ctx, token.TargetEmail, taskName, messageContent, publicURL, senderName); err != nil {
		s.collector.RecordMailFailure()
		slog.Error("共有通知メールの送信に失敗",
			"token_id", token.ID,
			"to", token.TargetEmail,
			"error", err,
		)
		return
	}

	s.collector.RecordMailSent()
}

// generateToken は暗号的に安全な共有トークン文字列を生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
