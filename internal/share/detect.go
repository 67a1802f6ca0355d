package share

import (
	"regexp"
	"strings"
)

// recipientPattern はメッセージ先頭の共有宛先を検出するパターン。
// local-part@domain 形式（ドメインにドットを含む）のメールアドレスに
// 1文字以上の空白が続く場合のみマッチする。
// 本文が複数行にわたる場合も残り全体をキャプチャする。
var recipientPattern = regexp.MustCompile(`(?s)^([^\s@]+@[^\s@]+\.[^\s@]+)\s+(.*)$`)

// DetectRecipient はメッセージ先頭の共有宛先メールアドレスを検出する。
// 検出した場合は宛先アドレスと残りの本文（前後の空白を除去済み）を返す。
// 宛先が検出できない場合、okはfalseとなり入力は通常のメッセージとして扱われる。
// メールアドレスのみで本文が続かないテキストは共有とみなさない。
func DetectRecipient(text string) (targetEmail, body string, ok bool) {
	m := recipientPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}
