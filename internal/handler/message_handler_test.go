package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lucarp/todo/internal/model"
	"github.com/lucarp/todo/internal/share"
)

// mockMessageService はMessageServiceInterfaceのモック実装。
type mockMessageService struct {
	listThreadFn  func(ctx context.Context, userID, taskID string) ([]*share.ThreadEntry, error)
	postMessageFn func(ctx context.Context, userID, taskID, rawText string) (*share.PostResult, error)
}

func (m *mockMessageService) ListThread(ctx context.Context, userID, taskID string) ([]*share.ThreadEntry, error) {
	if m.listThreadFn != nil {
		return m.listThreadFn(ctx, userID, taskID)
	}
	return nil, nil
}

func (m *mockMessageService) PostMessage(ctx context.Context, userID, taskID, rawText string) (*share.PostResult, error) {
	if m.postMessageFn != nil {
		return m.postMessageFn(ctx, userID, taskID, rawText)
	}
	return nil, nil
}

var _ MessageServiceInterface = (*mockMessageService)(nil)

func strPtr(s string) *string {
	return &s
}

// --- POST /api/tasks/:id/messages テスト ---

func TestMessageHandler_PostMessage_PlainMessage(t *testing.T) {
	svc := &mockMessageService{
		postMessageFn: func(ctx context.Context, userID, taskID, rawText string) (*share.PostResult, error) {
			if taskID != "task-id-1" {
				t.Errorf("taskID = %q, want %q", taskID, "task-id-1")
			}
			if rawText != "進捗どうですか" {
				t.Errorf("rawText = %q, want %q", rawText, "進捗どうですか")
			}
			return &share.PostResult{
				Message: &model.Message{
					ID:          "msg-1",
					TaskID:      taskID,
					UserID:      strPtr(userID),
					SenderEmail: "owner@example.com",
					Content:     rawText,
					IsExternal:  false,
					CreatedAt:   time.Now(),
				},
			}, nil
		},
	}

	h := NewMessageHandler(svc)

	body := `{"content": "進捗どうですか"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/task-id-1/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "task-id-1")
	w := httptest.NewRecorder()

	h.PostMessage(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	msg, ok := result["message"].(map[string]interface{})
	if !ok {
		t.Fatalf("message should be an object, got %T", result["message"])
	}
	if msg["content"] != "進捗どうですか" {
		t.Errorf("content = %v, want %q", msg["content"], "進捗どうですか")
	}
	if msg["is_external"] != false {
		t.Errorf("is_external = %v, want false", msg["is_external"])
	}

	// 共有が発生していないのでトークン関連フィールドは含まれない
	if _, ok := result["share_token"]; ok {
		t.Error("share_token should be omitted for plain messages")
	}
	if _, ok := result["public_url"]; ok {
		t.Error("public_url should be omitted for plain messages")
	}
}

func TestMessageHandler_PostMessage_WithShare(t *testing.T) {
	svc := &mockMessageService{
		postMessageFn: func(ctx context.Context, userID, taskID, rawText string) (*share.PostResult, error) {
			return &share.PostResult{
				Message: &model.Message{
					ID:          "msg-2",
					TaskID:      taskID,
					UserID:      strPtr(userID),
					SenderEmail: "owner@example.com",
					Content:     "レビューお願いします",
					IsExternal:  false,
					CreatedAt:   time.Now(),
				},
				Token:     "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90",
				PublicURL: "https://app.example.com/public/task/a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90",
			}, nil
		},
	}

	h := NewMessageHandler(svc)

	body := `{"content": "partner@example.com レビューお願いします"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/task-id-1/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "task-id-1")
	w := httptest.NewRecorder()

	h.PostMessage(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var result postMessageResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result.ShareToken == "" {
		t.Error("share_token should be present when sharing occurred")
	}
	if !strings.HasPrefix(result.PublicURL, "https://app.example.com/public/task/") {
		t.Errorf("public_url = %q, want prefix %q", result.PublicURL, "https://app.example.com/public/task/")
	}
	if !strings.HasSuffix(result.PublicURL, result.ShareToken) {
		t.Error("public_url should end with the issued token")
	}
}

func TestMessageHandler_PostMessage_Empty_ReturnsBadRequest(t *testing.T) {
	svc := &mockMessageService{
		postMessageFn: func(ctx context.Context, userID, taskID, rawText string) (*share.PostResult, error) {
			return nil, model.NewMessageEmptyError()
		},
	}

	h := NewMessageHandler(svc)

	body := `{"content": "   "}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/task-id-1/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "task-id-1")
	w := httptest.NewRecorder()

	h.PostMessage(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeMessageEmpty {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeMessageEmpty)
	}
}

func TestMessageHandler_PostMessage_TaskNotFound_Returns404(t *testing.T) {
	svc := &mockMessageService{
		postMessageFn: func(ctx context.Context, userID, taskID, rawText string) (*share.PostResult, error) {
			return nil, model.NewTaskNotFoundError(taskID)
		},
	}

	h := NewMessageHandler(svc)

	body := `{"content": "メッセージ"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/no-such-task/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "no-such-task")
	w := httptest.NewRecorder()

	h.PostMessage(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestMessageHandler_PostMessage_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{
		postMessageFn: func(ctx context.Context, userID, taskID, rawText string) (*share.PostResult, error) {
			t.Fatal("service should not be called without user ID")
			return nil, nil
		},
	})

	body := `{"content": "メッセージ"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/task-id-1/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withChiURLParam(req, "id", "task-id-1")
	w := httptest.NewRecorder()

	h.PostMessage(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestMessageHandler_PostMessage_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{})

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/task-id-1/messages", bytes.NewBufferString("{broken"))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "task-id-1")
	w := httptest.NewRecorder()

	h.PostMessage(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- GET /api/tasks/:id/messages テスト ---

func TestMessageHandler_ListMessages_Success(t *testing.T) {
	usedAt := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	svc := &mockMessageService{
		listThreadFn: func(ctx context.Context, userID, taskID string) ([]*share.ThreadEntry, error) {
			return []*share.ThreadEntry{
				{
					Message: &model.Message{
						ID:          "msg-1",
						TaskID:      taskID,
						UserID:      strPtr(userID),
						SenderEmail: "owner@example.com",
						Content:     "共有します",
						IsExternal:  false,
						CreatedAt:   time.Now(),
					},
					Tokens: []*model.AccessToken{
						{
							ID:          "token-id-1",
							Token:       "f0e1d2c3b4a5968778695a4b3c2d1e0ff0e1d2c3b4a5968778695a4b3c2d1e0f",
							TaskID:      taskID,
							MessageID:   "msg-1",
							TargetEmail: "partner@example.com",
							ExpiresAt:   time.Now().Add(7 * 24 * time.Hour),
							UsedAt:      &usedAt,
							CreatedAt:   time.Now(),
						},
					},
				},
				{
					Message: &model.Message{
						ID:          "msg-2",
						TaskID:      taskID,
						UserID:      nil,
						SenderEmail: "partner@example.com",
						Content:     "確認しました",
						IsExternal:  true,
						CreatedAt:   time.Now(),
					},
					Tokens: []*model.AccessToken{},
				},
			}, nil
		},
	}

	h := NewMessageHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/task-id-1/messages", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "task-id-1")
	w := httptest.NewRecorder()

	h.ListMessages(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	rawBody := w.Body.String()

	var result struct {
		Messages []threadEntryResponse `json:"messages"`
	}
	if err := json.Unmarshal([]byte(rawBody), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(result.Messages) != 2 {
		t.Fatalf("messages count = %d, want 2", len(result.Messages))
	}

	first := result.Messages[0]
	if len(first.ShareTokens) != 1 {
		t.Fatalf("first entry should carry one share token, got %d", len(first.ShareTokens))
	}
	if first.ShareTokens[0].TargetEmail != "partner@example.com" {
		t.Errorf("target_email = %q, want %q", first.ShareTokens[0].TargetEmail, "partner@example.com")
	}
	if first.ShareTokens[0].UsedAt == nil {
		t.Error("used_at should be set for a consumed token")
	}

	second := result.Messages[1]
	if !second.Message.IsExternal {
		t.Error("reply message should be marked as external")
	}
	if second.Message.UserID != nil {
		t.Error("external reply should not carry a user ID")
	}

	// トークン文字列とトークンIDは一覧レスポンスに露出しない
	if strings.Contains(rawBody, "f0e1d2c3b4a5968778695a4b3c2d1e0f") {
		t.Error("raw token value must not appear in the thread listing")
	}
	if strings.Contains(rawBody, "token-id-1") {
		t.Error("token ID must not appear in the thread listing")
	}
}

func TestMessageHandler_ListMessages_TaskNotFound_Returns404(t *testing.T) {
	svc := &mockMessageService{
		listThreadFn: func(ctx context.Context, userID, taskID string) ([]*share.ThreadEntry, error) {
			return nil, model.NewTaskNotFoundError(taskID)
		},
	}

	h := NewMessageHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/no-such-task/messages", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "no-such-task")
	w := httptest.NewRecorder()

	h.ListMessages(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeTaskNotFound {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeTaskNotFound)
	}
}
