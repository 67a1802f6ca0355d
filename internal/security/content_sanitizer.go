// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はチャットメッセージおよび外部返信の本文を
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// メッセージ本文はプレーンテキストとして扱うため、bluemondayライブラリの
// 厳格ポリシーで全てのHTMLタグを除去する。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はメッセージ本文のサニタイズ機能のインターフェースを定義する。
// メッセージおよび外部返信の保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize は入力テキストから全てのHTMLタグを除去したプレーンテキストを返す。
	// script, style等のタグはその中身ごと除去される。
	// タグ除去後にHTML実体参照を復元するため、"a < b" のような記号を含む
	// テキストはそのまま保持される。
	// 空文字列の入力には空文字列を返す。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayの厳格ポリシーを構築する。
// 厳格ポリシーは許可タグを一切持たないため、全てのタグと属性が除去され、
// テキストコンテンツのみが残る。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストから全てのHTMLタグを除去したプレーンテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	// bluemondayは残存テキストをHTMLエスケープして返すため、
	// プレーンテキストとして保存できるよう実体参照を復元する。
	return html.UnescapeString(s.policy.Sanitize(raw))
}
