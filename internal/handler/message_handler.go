package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lucarp/todo/internal/middleware"
	"github.com/lucarp/todo/internal/model"
	"github.com/lucarp/todo/internal/share"
)

// MessageServiceInterface はメッセージハンドラーが必要とするサービスインターフェース。
type MessageServiceInterface interface {
	// ListThread はタスクのメッセージスレッドを発行済み共有トークン付きで返す。
	ListThread(ctx context.Context, userID, taskID string) ([]*share.ThreadEntry, error)
	// PostMessage はメッセージを投稿する。
	// 先頭が共有宛先の場合は共有トークンを発行し通知メールを送信する。
	PostMessage(ctx context.Context, userID, taskID, rawText string) (*share.PostResult, error)
}

// MessageHandler はタスクメッセージのHTTPハンドラー。
type MessageHandler struct {
	service MessageServiceInterface
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(service MessageServiceInterface) *MessageHandler {
	return &MessageHandler{service: service}
}

// postMessageRequest はメッセージ投稿リクエストのボディ。
type postMessageRequest struct {
	Content string `json:"content"`
}

// messageResponse はメッセージ情報のAPIレスポンス。
type messageResponse struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	UserID      *string   `json:"user_id"`
	SenderEmail string    `json:"sender_email"`
	IsExternal  bool      `json:"is_external"`
	CreatedAt   time.Time `json:"created_at"`
}

// shareTokenResponse は発行済み共有トークンの状態を表すAPIレスポンス。
// トークン文字列そのものは発行時のレスポンスでのみ返し、一覧には含めない。
type shareTokenResponse struct {
	TargetEmail string     `json:"target_email"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// threadEntryResponse はスレッド内の1メッセージと発行済み共有トークン。
type threadEntryResponse struct {
	Message     messageResponse      `json:"message"`
	ShareTokens []shareTokenResponse `json:"share_tokens"`
}

// postMessageResponse はメッセージ投稿のAPIレスポンス。
// 共有が発生した場合のみShareTokenとPublicURLを含む。
type postMessageResponse struct {
	Message    messageResponse `json:"message"`
	ShareToken string          `json:"share_token,omitempty"`
	PublicURL  string          `json:"public_url,omitempty"`
}

// ListMessages はタスクのメッセージスレッドを取得する。
// GET /api/tasks/:id/messages
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	taskID := chi.URLParam(r, "id")

	entries, err := h.service.ListThread(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]threadEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = toThreadEntryResponse(entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"messages": responses,
	})
}

// PostMessage はメッセージ投稿を処理する。
// POST /api/tasks/:id/messages
func (h *MessageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	taskID := chi.URLParam(r, "id")

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	result, err := h.service.PostMessage(r.Context(), userID, taskID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(postMessageResponse{
		Message:    toMessageResponse(result.Message),
		ShareToken: result.Token,
		PublicURL:  result.PublicURL,
	})
}

// --- ヘルパー関数 ---

// toMessageResponse はmodel.MessageからAPIレスポンスに変換する。
func toMessageResponse(m *model.Message) messageResponse {
	return messageResponse{
		ID:          m.ID,
		Content:     m.Content,
		UserID:      m.UserID,
		SenderEmail: m.SenderEmail,
		IsExternal:  m.IsExternal,
		CreatedAt:   m.CreatedAt,
	}
}

// toThreadEntryResponse はスレッドエントリからAPIレスポンスに変換する。
func toThreadEntryResponse(entry *share.ThreadEntry) threadEntryResponse {
	tokens := make([]shareTokenResponse, len(entry.Tokens))
	for i, token := range entry.Tokens {
		tokens[i] = shareTokenResponse{
			TargetEmail: token.TargetEmail,
			ExpiresAt:   token.ExpiresAt,
			UsedAt:      token.UsedAt,
			CreatedAt:   token.CreatedAt,
		}
	}

	return threadEntryResponse{
		Message:     toMessageResponse(entry.Message),
		ShareTokens: tokens,
	}
}
