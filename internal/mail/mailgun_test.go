package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func enabledConfig() Config {
	return Config{
		APIKey:    "key-test",
		Domain:    "mg.example.com",
		FromEmail: "todo@mg.example.com",
	}
}

// extractFirstLink はHTML本文から最初の<a>タグのhref属性を取り出す。
func extractFirstLink(t *testing.T, htmlBody string) string {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		t.Fatalf("HTML本文のパースに失敗: %v", err)
	}

	var href string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if href != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = attr.Val
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if href == "" {
		t.Fatalf("HTML本文に<a>タグが含まれていません: %s", htmlBody)
	}
	return href
}

func TestNewMailgunClient_ReturnsNonNil(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	c := NewMailgunClient(http.DefaultClient, logger, enabledConfig())
	if c == nil {
		t.Fatal("NewMailgunClient は nil を返してはならない")
	}
}

func TestNewMailgunClient_DefaultsAPIBase(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	c := NewMailgunClient(http.DefaultClient, logger, enabledConfig())
	if c.config.APIBase != defaultAPIBase {
		t.Errorf("APIBase = %q, want %q", c.config.APIBase, defaultAPIBase)
	}
}

func TestMailgunClient_Enabled(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   bool
	}{
		{"すべて設定済み", enabledConfig(), true},
		{"すべて未設定", Config{}, false},
		{"APIキーなし", Config{Domain: "mg.example.com", FromEmail: "todo@mg.example.com"}, false},
		{"ドメインなし", Config{APIKey: "key-test", FromEmail: "todo@mg.example.com"}, false},
		{"差出人なし", Config{APIKey: "key-test", Domain: "mg.example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := NewMailgunClient(http.DefaultClient, newTestLogger(&buf), tt.config)
			if got := c.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMailgunClient_SendShareNotification_PostsForm(t *testing.T) {
	shareURL := "https://todo.example.com/public/task/0123abcd"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}
		if r.URL.Path != "/mg.example.com/messages" {
			t.Errorf("パス = %s, want /mg.example.com/messages", r.URL.Path)
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			t.Error("Basic認証が設定されていない")
		}
		if user != "api" || pass != "key-test" {
			t.Errorf("Basic認証 = %s:%s, want api:key-test", user, pass)
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("フォームのパースに失敗: %v", err)
		}
		if got := r.FormValue("from"); got != "todo@mg.example.com" {
			t.Errorf("from = %q, want %q", got, "todo@mg.example.com")
		}
		if got := r.FormValue("to"); got != "partner@example.com" {
			t.Errorf("to = %q, want %q", got, "partner@example.com")
		}
		if got := r.FormValue("subject"); !strings.Contains(got, "設計レビュー") {
			t.Errorf("subjectにタスク名が含まれていない: %q", got)
		}

		body := r.FormValue("html")
		if !strings.Contains(body, "田中") {
			t.Errorf("本文に送信者名が含まれていない: %q", body)
		}
		if !strings.Contains(body, "仕様のレビューをお願いします") {
			t.Errorf("本文にメッセージ抜粋が含まれていない: %q", body)
		}

		// HTML本文内のリンクが共有URLと一致すること
		if got := extractFirstLink(t, body); got != shareURL {
			t.Errorf("リンク = %q, want %q", got, shareURL)
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var buf bytes.Buffer
	cfg := enabledConfig()
	cfg.APIBase = server.URL
	c := NewMailgunClient(server.Client(), newTestLogger(&buf), cfg)

	err := c.SendShareNotification(context.Background(), "partner@example.com", "設計レビュー", "仕様のレビューをお願いします", shareURL, "田中")
	if err != nil {
		t.Fatalf("SendShareNotification がエラーを返した: %v", err)
	}
}

func TestMailgunClient_SendShareNotification_Disabled_SkipsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Mailgun未設定時にHTTPリクエストが送信されてはならない")
	}))
	defer server.Close()

	var buf bytes.Buffer
	cfg := Config{APIBase: server.URL}
	c := NewMailgunClient(server.Client(), newTestLogger(&buf), cfg)

	err := c.SendShareNotification(context.Background(), "partner@example.com", "タスク", "本文", "https://todo.example.com/public/task/abc", "田中")
	if err != nil {
		t.Fatalf("未設定時はエラーなしで終了するべき: %v", err)
	}

	if !strings.Contains(buf.String(), "skipping") {
		t.Errorf("送信スキップのログが記録されるべき: %s", buf.String())
	}
}

func TestMailgunClient_SendShareNotification_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var buf bytes.Buffer
	cfg := enabledConfig()
	cfg.APIBase = server.URL
	c := NewMailgunClient(server.Client(), newTestLogger(&buf), cfg)

	err := c.SendShareNotification(context.Background(), "partner@example.com", "タスク", "本文", "https://todo.example.com/public/task/abc", "田中")
	if err == nil {
		t.Fatal("HTTPエラー時にエラーが返されるべき")
	}

	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("APIエラー時にERRORレベルのログが記録されるべき: %s", buf.String())
	}
}

func TestMailgunClient_SendShareNotification_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var buf bytes.Buffer
	cfg := enabledConfig()
	cfg.APIBase = server.URL
	c := NewMailgunClient(server.Client(), newTestLogger(&buf), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // 即座にキャンセル

	err := c.SendShareNotification(ctx, "partner@example.com", "タスク", "本文", "https://todo.example.com/public/task/abc", "田中")
	if err == nil {
		t.Fatal("キャンセルされたコンテキストでエラーが返されるべき")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("context.Canceled エラーであるべき: got %v", err)
	}
}

func TestMailgunClient_SendShareNotification_EscapesTaskName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("フォームのパースに失敗: %v", err)
		}
		body := r.FormValue("html")
		if strings.Contains(body, "<script>") {
			t.Errorf("タスク名がエスケープされていない: %s", body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var buf bytes.Buffer
	cfg := enabledConfig()
	cfg.APIBase = server.URL
	c := NewMailgunClient(server.Client(), newTestLogger(&buf), cfg)

	err := c.SendShareNotification(context.Background(), "partner@example.com", "<script>alert(1)</script>", "<script>steal()</script>", "https://todo.example.com/public/task/abc", "田中")
	if err != nil {
		t.Fatalf("SendShareNotification がエラーを返した: %v", err)
	}
}

func TestBuildShareHTML_ContainsLink(t *testing.T) {
	shareURL := "https://todo.example.com/public/task/token-xyz"
	body := buildShareHTML("レビュー依頼", "最新の設計図を確認してください", shareURL, "佐藤")

	if got := extractFirstLink(t, body); got != shareURL {
		t.Errorf("リンク = %q, want %q", got, shareURL)
	}
	if !strings.Contains(body, "レビュー依頼") {
		t.Errorf("本文にタスク名が含まれるべき: %s", body)
	}
	if !strings.Contains(body, "佐藤") {
		t.Errorf("本文に送信者名が含まれるべき: %s", body)
	}
	if !strings.Contains(body, "最新の設計図を確認してください") {
		t.Errorf("本文にメッセージ抜粋が含まれるべき: %s", body)
	}
}

func TestBuildShareHTML_TruncatesLongMessage(t *testing.T) {
	long := strings.Repeat("あ", excerptLimit+50)
	body := buildShareHTML("タスク", long, "https://todo.example.com/public/task/abc", "佐藤")

	if strings.Contains(body, long) {
		t.Error("長いメッセージは全文ではなく抜粋が載るべき")
	}
	if !strings.Contains(body, "…") {
		t.Errorf("切り詰められた抜粋には省略記号が付くべき: %s", body)
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"短い文字列はそのまま", "こんにちは", 10, "こんにちは"},
		{"上限ちょうどはそのまま", "12345", 5, "12345"},
		{"上限超過は切り詰め", "1234567890", 5, "12345…"},
		{"マルチバイトはrune単位で切る", "あいうえおかきくけこ", 3, "あいう…"},
		{"空文字列は空のまま", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := excerpt(tt.input, tt.max); got != tt.want {
				t.Errorf("excerpt(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}
