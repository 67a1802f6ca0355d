// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/lucarp/todo/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentitiesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
// 通常の参照は必ず所有ユーザーでスコープする。
type TaskRepository interface {
	// FindByUserAndID は指定ユーザーが所有するタスクを取得する。
	// 存在しない、または他ユーザーの所有の場合はnilを返す。
	FindByUserAndID(ctx context.Context, userID, id string) (*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクを更新する。所有ユーザーが一致する行のみ更新する。
	Update(ctx context.Context, task *model.Task) error

	// ListByUserID はユーザーのタスク一覧を返す。
	// statusがnilの場合は全状態、tagが空の場合は全タグを対象とする。
	ListByUserID(ctx context.Context, userID string, status *model.TaskStatus, tag string, sort model.TaskSortKey) ([]*model.Task, error)

	// Reorder は指定ユーザーのタスクのsort_orderを並び順の通りに更新する。
	// 全件を同一トランザクションで更新する。
	Reorder(ctx context.Context, userID string, orderedIDs []string) error

	// Delete は指定ユーザーが所有するタスクを削除する。
	// 関連するmessages、access_tokensはCASCADE削除される。
	Delete(ctx context.Context, userID, id string) error

	// DeleteByUserID はユーザーの全タスクを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// MessageRepository はタスクチャットメッセージの永続化インターフェース。
type MessageRepository interface {
	// Create はメッセージを作成する。
	Create(ctx context.Context, message *model.Message) error

	// ListByTaskID はタスクのメッセージ一覧をcreated_at昇順で返す。
	ListByTaskID(ctx context.Context, taskID string) ([]*model.Message, error)

	// CountByAccessTokenID は指定アクセストークン経由で投稿されたメッセージ数を返す。
	CountByAccessTokenID(ctx context.Context, accessTokenID string) (int, error)
}

// AccessTokenRepository はワンタイムアクセストークンの永続化インターフェース。
type AccessTokenRepository interface {
	// Create はアクセストークンを作成する。
	Create(ctx context.Context, token *model.AccessToken) error

	// FindByToken はトークン文字列でアクセストークンを検索する。
	// 見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.AccessToken, error)

	// MarkUsed は未使用のトークンに限り使用済み時刻を記録する。
	// 更新できた場合はtrueを、既に使用済みなどで更新対象がなかった場合はfalseを返す。
	MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error)

	// ListByMessageID は指定メッセージに対して発行されたトークン一覧を
	// created_at降順で返す。
	ListByMessageID(ctx context.Context, messageID string) ([]*model.AccessToken, error)

	// DeleteExpiredBefore は指定時刻より前に期限切れとなったトークンを削除し、
	// 削除件数を返す。
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PublicContentRepository はトークン検証後の公開閲覧専用アクセサ。
// 所有ユーザーによるスコープを行わない昇格参照はここに集約し、
// トークンが運ぶIDでのみ引けるようにする。
type PublicContentRepository interface {
	// FindTaskByID はタスクをIDで取得する。見つからない場合はnilを返す。
	FindTaskByID(ctx context.Context, id string) (*model.Task, error)

	// FindMessageByID はメッセージをIDで取得する。見つからない場合はnilを返す。
	FindMessageByID(ctx context.Context, id string) (*model.Message, error)
}
