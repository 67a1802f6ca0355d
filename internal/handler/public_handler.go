package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lucarp/todo/internal/model"
	"github.com/lucarp/todo/internal/share"
)

// PublicServiceInterface は公開ページハンドラーが必要とするサービスインターフェース。
type PublicServiceInterface interface {
	// ViewSharedMessage は共有トークンを検証・消費して共有内容を返す。
	ViewSharedMessage(ctx context.Context, token string) (*share.SharedMessageView, error)
	// SubmitReply は共有リンク経由の匿名返信を受け付ける。
	SubmitReply(ctx context.Context, token, replyText string) (*model.Message, error)
}

// PublicHandler は共有リンク公開ページのHTTPハンドラー。
// 匿名アクセスのためレスポンスに内部IDを含めない。
type PublicHandler struct {
	service PublicServiceInterface
}

// NewPublicHandler はPublicHandlerを生成する。
func NewPublicHandler(service PublicServiceInterface) *PublicHandler {
	return &PublicHandler{service: service}
}

// submitReplyRequest は匿名返信リクエストのボディ。
type submitReplyRequest struct {
	Content string `json:"content"`
}

// sharedTaskResponse は公開ページに表示するタスク情報。
type sharedTaskResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// sharedMessageResponse は公開ページに表示するメッセージ情報。
type sharedMessageResponse struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// sharedViewResponse は共有メッセージ閲覧のAPIレスポンス。
type sharedViewResponse struct {
	Task     sharedTaskResponse    `json:"task"`
	Message  sharedMessageResponse `json:"message"`
	SharedTo string                `json:"shared_to"`
}

// replyResponse は匿名返信受付のAPIレスポンス。
type replyResponse struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ViewSharedMessage は共有リンクの閲覧を処理する。
// リンクはこのアクセスで消費され、以後の閲覧はできなくなる。
// GET /public/task/:token
func (h *PublicHandler) ViewSharedMessage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	view, err := h.service.ViewSharedMessage(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sharedViewResponse{
		Task: sharedTaskResponse{
			Name:        view.Task.Name,
			Description: view.Task.Description,
		},
		Message: sharedMessageResponse{
			Content:   view.Message.Content,
			CreatedAt: view.Message.CreatedAt,
		},
		SharedTo: view.Token.TargetEmail,
	})
}

// SubmitReply は共有リンク経由の匿名返信を処理する。
// POST /public/task/:token/reply
func (h *PublicHandler) SubmitReply(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req submitReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	reply, err := h.service.SubmitReply(r.Context(), token, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(replyResponse{
		Content:   reply.Content,
		CreatedAt: reply.CreatedAt,
	})
}
