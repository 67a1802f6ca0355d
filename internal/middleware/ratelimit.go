package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate  rate.Limit // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst int        // API全般のバーストサイズ
	ShareRate    rate.Limit // メッセージ投稿（共有リンク発行を含む）のレート（req/sec）。10/60
	ShareBurst   int        // メッセージ投稿のバーストサイズ
	PublicRate   rate.Limit // 公開ページのIP単位レート（req/sec）。30/60
	PublicBurst  int        // 公開ページのバーストサイズ

	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 要件: API全般 120 req/min/user、メッセージ投稿 10 req/min/user、
// 公開ページ 30 req/min/IP
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0), // 2 req/sec
		GeneralBurst:    120,
		ShareRate:       rate.Limit(10.0 / 60.0), // ~0.167 req/sec
		ShareBurst:      10,
		PublicRate:      rate.Limit(30.0 / 60.0), // 0.5 req/sec
		PublicBurst:     30,
		CleanupInterval: 5 * time.Minute,
	}
}

// limiterEntry はキーごとのレートリミッターとアクセス時刻を保持する。
type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterGroup は同一の制限値を共有するキー付きリミッターの集合。
// キーはユーザーIDまたはクライアントIP。
type limiterGroup struct {
	rate  rate.Limit
	burst int

	mu      sync.RWMutex
	entries map[string]*limiterEntry
}

func newLimiterGroup(r rate.Limit, burst int) *limiterGroup {
	return &limiterGroup{
		rate:    r,
		burst:   burst,
		entries: make(map[string]*limiterEntry),
	}
}

// get はキーに対応するリミッターを取得または作成する。
func (g *limiterGroup) get(key string) *rate.Limiter {
	g.mu.RLock()
	entry, exists := g.entries[key]
	g.mu.RUnlock()

	if exists {
		g.mu.Lock()
		entry.lastAccess = time.Now()
		g.mu.Unlock()
		return entry.limiter
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// ダブルチェック
	if entry, exists := g.entries[key]; exists {
		entry.lastAccess = time.Now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(g.rate, g.burst)
	g.entries[key] = &limiterEntry{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

func (g *limiterGroup) count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// cleanup は最終アクセス時刻がttlを超えたエントリを削除する。
func (g *limiterGroup) cleanup(ttl time.Duration) {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	for key, entry := range g.entries {
		if now.Sub(entry.lastAccess) > ttl {
			delete(g.entries, key)
		}
	}
}

// RateLimiter はキー単位のレート制限を管理する。
// 認証済みAPI全般、メッセージ投稿、公開ページの3種類を提供する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterGroup
	share   *limiterGroup
	public  *limiterGroup

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterGroup(config.GeneralRate, config.GeneralBurst),
		share:   newLimiterGroup(config.ShareRate, config.ShareBurst),
		public:  newLimiterGroup(config.PublicRate, config.PublicBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のユーザー単位レート制限ミドルウェアを返す。
// リクエストコンテキストにユーザーIDが含まれている必要がある（SessionMiddlewareの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.userLimitMiddleware(rl.general, "general")
}

// ShareIssuanceMiddleware はメッセージ投稿専用のレート制限ミドルウェアを返す。
// 共有リンクの発行とメール送信を伴う操作のため、API全般より厳しい制限を課す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) ShareIssuanceMiddleware() func(next http.Handler) http.Handler {
	return rl.userLimitMiddleware(rl.share, "share_issuance")
}

// userLimitMiddleware はユーザーIDをキーとするレート制限ミドルウェアを返す。
func (rl *RateLimiter) userLimitMiddleware(group *limiterGroup, limitType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if !group.get(userID).Allow() {
				writeRateLimitResponse(w, group.rate)
				slog.Warn("rate limit exceeded",
					slog.String("user_id", userID),
					slog.String("limit_type", limitType),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PublicMiddleware は公開ページのIP単位レート制限ミドルウェアを返す。
// 匿名アクセスのためユーザーIDは使用せず、クライアントIPをキーとする。
func (rl *RateLimiter) PublicMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			if !rl.public.get(ip).Allow() {
				writeRateLimitResponse(w, rl.config.PublicRate)
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", ip),
					slog.String("limit_type", "public"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.count()
}

// ShareLimiterCount は現在管理されているメッセージ投稿リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) ShareLimiterCount() int {
	return rl.share.count()
}

// PublicLimiterCount は現在管理されている公開ページリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) PublicLimiterCount() int {
	return rl.public.count()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	rl.general.cleanup(ttl)
	rl.share.cleanup(ttl)
	rl.public.cleanup(ttl)
}

// clientIP はリクエストのクライアントIPを返す。
// リバースプロキシ経由の場合に備えてX-Forwarded-Forの先頭エントリを優先し、
// なければRemoteAddrのホスト部を使用する。
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "RATE_LIMIT_EXCEEDED",
		"message":  "リクエスト回数が多すぎます。しばらく待ってから再度お試しください。",
		"category": "system",
		"action":   "表示された時間の経過後に再度お試しください。",
	})
}
