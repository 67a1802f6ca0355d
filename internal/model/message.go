// Package model はドメインモデルを定義する。
package model

import "time"

// Message はタスクのチャットスレッドに投稿された1件のメッセージを表す。
// UserID がnilのメッセージは外部の相手（共有リンク経由の返信）による投稿であり、
// その場合は SenderEmail に投稿者のメールアドレスが入る。
type Message struct {
	ID            string
	TaskID        string
	UserID        *string
	SenderEmail   string
	Content       string
	IsExternal    bool
	AccessTokenID *string
	CreatedAt     time.Time
}
