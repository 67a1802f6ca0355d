// Package mail は共有リンク通知メールの送信機能を提供する。
// Mailgun APIの呼び出しと、未設定時に送信を省略する無効モードを含む。
package mail

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// defaultAPIBase はMailgun APIのベースURL。
const defaultAPIBase = "https://api.mailgun.net/v3"

// Config はMailgunクライアントの設定。
// APIKey、Domain、FromEmailがすべて設定されている場合のみ送信が有効になる。
type Config struct {
	APIKey    string
	Domain    string
	FromEmail string
	APIBase   string // 空の場合はMailgun本番APIを使用
}

// MailgunClient はMailgun APIを使用するメール送信クライアント。
type MailgunClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     Config
}

// NewMailgunClient はMailgunClientの新しいインスタンスを生成する。
func NewMailgunClient(httpClient *http.Client, logger *slog.Logger, config Config) *MailgunClient {
	if config.APIBase == "" {
		config.APIBase = defaultAPIBase
	}
	return &MailgunClient{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
	}
}

// Enabled は送信に必要なMailgun設定が揃っているかを返す。
func (c *MailgunClient) Enabled() bool {
	return c.config.APIKey != "" && c.config.Domain != "" && c.config.FromEmail != ""
}

// SendShareNotification は共有リンクを記載した通知メールを送信する。
// Mailgunが未設定の場合は送信せず、ログに記録して正常終了する。
func (c *MailgunClient) SendShareNotification(ctx context.Context, to, taskName, messageContent, publicURL, senderName string) error {
	if !c.Enabled() {
		c.logger.Info("mailgun is not configured, skipping share notification",
			slog.String("to", to),
			slog.String("task_name", taskName),
		)
		return nil
	}

	subject := fmt.Sprintf("タスク「%s」のメッセージが共有されました", taskName)
	body := buildShareHTML(taskName, messageContent, publicURL, senderName)

	form := url.Values{}
	form.Set("from", c.config.FromEmail)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("html", body)

	endpoint := fmt.Sprintf("%s/%s/messages", c.config.APIBase, c.config.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to call mailgun API",
			slog.String("error", err.Error()),
			slog.String("to", to),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("mailgun API returned error status",
			slog.Int("http_status", resp.StatusCode),
			slog.String("to", to),
		)
		return fmt.Errorf("Mailgun APIがステータス %d を返しました", resp.StatusCode)
	}

	c.logger.Info("share notification sent",
		slog.String("to", to),
	)

	return nil
}

// excerptLimit はメール本文に載せるメッセージ抜粋の最大文字数。
const excerptLimit = 100

// buildShareHTML は共有通知メールのHTML本文を組み立てる。
// メッセージ本文は抜粋のみを載せ、全文はリンク先で閲覧してもらう。
func buildShareHTML(taskName, messageContent, publicURL, senderName string) string {
	escapedSender := html.EscapeString(senderName)
	escapedName := html.EscapeString(taskName)
	escapedExcerpt := html.EscapeString(excerpt(messageContent, excerptLimit))
	escapedURL := html.EscapeString(publicURL)

	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(fmt.Sprintf("<p>%s さんがタスク「%s」のメッセージを共有しました。</p>", escapedSender, escapedName))
	b.WriteString(fmt.Sprintf(`<p style="margin: 15px 0; padding: 10px; background: #f5f5f5;">%s</p>`, escapedExcerpt))
	b.WriteString(fmt.Sprintf(`<p><a href="%s">メッセージを確認する</a></p>`, escapedURL))
	b.WriteString("<p>このリンクでメッセージを閲覧できるのは一度だけです。有効期限が切れた場合は送信者に再発行を依頼してください。</p>")
	b.WriteString("<p>リンク先のページからは、アカウント登録なしで返信できます。</p>")
	b.WriteString("</body></html>")
	return b.String()
}

// excerpt は文字列を最大max文字（rune単位）に切り詰める。
func excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
