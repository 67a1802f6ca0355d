// Package model はドメインモデルを定義する。
package model

import "time"

// AccessToken はタスク共有メールに埋め込まれるワンタイムアクセストークンを表す。
// トークンは特定のタスクとメッセージに紐づき、宛先メールアドレスの相手だけが
// 使うことを想定した閲覧権限を運ぶ。
type AccessToken struct {
	ID              string
	Token           string
	TaskID          string
	MessageID       string
	TargetEmail     string
	CreatedByUserID string
	ExpiresAt       time.Time
	UsedAt          *time.Time
	CreatedAt       time.Time
}

// IsExpired は有効期限を過ぎているかを返す。
// ExpiresAt ちょうどの時刻も期限切れとして扱う。
func (t *AccessToken) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt は指定時刻において有効期限を過ぎているかを返す。
func (t *AccessToken) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsUsed は閲覧に使用済みかを返す。
func (t *AccessToken) IsUsed() bool {
	return t.UsedAt != nil
}

// IsValid は未使用かつ有効期限内であるかを返す。
func (t *AccessToken) IsValid() bool {
	return !t.IsExpired() && !t.IsUsed()
}
