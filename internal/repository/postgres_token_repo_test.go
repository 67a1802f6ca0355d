package repository

import (
	"testing"
	"time"

	"github.com/lucarp/todo/internal/model"
)

// PostgresAccessTokenRepoはAccessTokenRepositoryインターフェースを満たすことを検証
func TestPostgresAccessTokenRepo_ImplementsInterface(t *testing.T) {
	var _ AccessTokenRepository = (*PostgresAccessTokenRepo)(nil)
}

// NewPostgresAccessTokenRepoが正しく初期化されることを検証
func TestNewPostgresAccessTokenRepo_Initializes(t *testing.T) {
	repo := NewPostgresAccessTokenRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// AccessTokenモデルのフィールドが正しく構築されることを検証
func TestPostgresAccessTokenRepo_TokenModel_Fields(t *testing.T) {
	now := time.Now()
	token := &model.AccessToken{
		ID:              "token-id-1",
		Token:           "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		TaskID:          "task-id-1",
		MessageID:       "message-id-1",
		TargetEmail:     "partner@example.com",
		CreatedByUserID: "user-id-1",
		ExpiresAt:       now.Add(7 * 24 * time.Hour),
		CreatedAt:       now,
	}

	if token.TargetEmail != "partner@example.com" {
		t.Errorf("token.TargetEmail = %q, want %q", token.TargetEmail, "partner@example.com")
	}
	if token.UsedAt != nil {
		t.Error("used_at should be nil for a freshly issued token")
	}
	if !token.IsValid() {
		t.Error("freshly issued token should be valid")
	}
}
