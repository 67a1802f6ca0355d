package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// runCSRF はミドルウェアを通してリクエストを実行し、
// 内側のハンドラーが呼ばれたかどうかとレスポンスを返す。
func runCSRF(t *testing.T, req *http.Request) (called bool, resp *http.Response) {
	t.Helper()
	mw := NewCSRFMiddleware(CSRFConfig{})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return called, w.Result()
}

func TestCSRFMiddleware_SafeMethods_SkipValidation(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/api/tasks", nil)
			called, resp := runCSRF(t, req)

			if !called {
				t.Fatalf("%s must pass through without a token", method)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
			}
		})
	}
}

func TestCSRFMiddleware_MutatingMethods_RejectInvalidTokens(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
	}{
		{"Cookieなし", "", ""},
		{"ヘッダーなし", "token-abc", ""},
		{"トークン不一致", "token-abc", "token-xyz"},
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		for _, tt := range tests {
			t.Run(method+"_"+tt.name, func(t *testing.T) {
				req := httptest.NewRequest(method, "/api/tasks", nil)
				if tt.cookie != "" {
					req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
				}
				if tt.header != "" {
					req.Header.Set(csrfHeaderName, tt.header)
				}

				called, resp := runCSRF(t, req)

				if called {
					t.Fatalf("%s must not reach the handler with %s", method, tt.name)
				}
				if resp.StatusCode != http.StatusForbidden {
					t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
				}
			})
		}
	}
}

func TestCSRFMiddleware_MutatingMethods_AcceptMatchingToken(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/api/tasks", nil)
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token-match"})
			req.Header.Set(csrfHeaderName, "token-match")

			called, resp := runCSRF(t, req)

			if !called {
				t.Fatalf("%s with matching token must reach the handler", method)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
			}
		})
	}
}

func TestCSRFMiddleware_GET_IssuesCookieWhenAbsent(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{CookieDomain: "example.com"})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	cookie := findCookie(w.Result().Cookies(), csrfCookieName)
	if cookie == nil {
		t.Fatal("expected CSRF cookie on first GET")
	}
	if cookie.Value == "" {
		t.Error("issued cookie must carry a token")
	}
	if cookie.HttpOnly {
		t.Error("CSRF cookie must be readable by the frontend (HttpOnly = false)")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}
	if cookie.Path != "/" {
		t.Errorf("Path = %q, want /", cookie.Path)
	}
}

func TestCSRFMiddleware_GET_KeepsExistingCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "already-issued"})

	_, resp := runCSRF(t, req)

	if findCookie(resp.Cookies(), csrfCookieName) != nil {
		t.Error("existing CSRF cookie must not be replaced")
	}
}

func TestCSRFTokenHandler_IssuesTokenAndCookie(t *testing.T) {
	h := NewCSRFTokenHandler(CSRFConfig{CookieDomain: "example.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Token == "" {
		t.Fatal("expected non-empty token")
	}

	cookie := findCookie(resp.Cookies(), csrfCookieName)
	if cookie == nil {
		t.Fatal("expected CSRF cookie alongside the JSON token")
	}
	if cookie.Value != body.Token {
		t.Errorf("cookie token %q differs from response token %q", cookie.Value, body.Token)
	}
}

func TestCSRFTokenHandler_ReturnsExistingToken(t *testing.T) {
	h := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "issued-earlier"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Token != "issued-earlier" {
		t.Errorf("token = %q, want the existing token issued-earlier", body.Token)
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
