package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"edu-records/config"
	"edu-records/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ── 测试辅助 ──

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLimiter struct {
	calls int
	keys  []string
	allow bool
	err   error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.calls++
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: 15 * time.Minute,
		Issuer:         "edu-records",
	})
}

func bearer(t *testing.T, m *jwt.Manager, role, studentID string) string {
	t.Helper()
	token, err := m.GenerateAccessToken("user-1", role, studentID)
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}
	return "Bearer " + token
}

// echoClaims 输出中间件注入的上下文
func echoClaims(c *gin.Context) {
	c.String(http.StatusOK, "%s|%s|%s", c.GetString(CtxUserID), c.GetString(CtxRole), c.GetString(CtxStudentID))
}

// ── JWTAuth 测试 ──

func TestJWTAuth(t *testing.T) {
	m := newTestJWT()
	valid := bearer(t, m, jwt.RoleStudent, "stu-1")

	tests := []struct {
		name       string
		header     string
		blacklist  TokenBlacklist
		wantStatus int
	}{
		{"有效 Token", valid, nil, http.StatusOK},
		{"缺少认证头", "", nil, http.StatusUnauthorized},
		{"格式错误", strings.TrimPrefix(valid, "Bearer "), nil, http.StatusUnauthorized},
		{"Token 无效", "Bearer invalid.token.string", nil, http.StatusUnauthorized},
		{"黑名单查询失败时放行", valid, &fakeBlacklist{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", JWTAuth(m, tt.blacklist), echoClaims)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusOK && w.Body.String() != "user-1|student|stu-1" {
				t.Errorf("上下文注入不符: %s", w.Body.String())
			}
		})
	}
}

func TestJWTAuth_Revoked(t *testing.T) {
	m := newTestJWT()
	header := bearer(t, m, jwt.RoleAdmin, "")
	claims, _ := m.ParseToken(strings.TrimPrefix(header, "Bearer "))

	r := gin.New()
	r.GET("/x", JWTAuth(m, &fakeBlacklist{revoked: map[string]bool{claims.ID: true}}), echoClaims)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", header)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("已注销的 Token 应返回 401，实际=%d", w.Code)
	}
}

// ── RoleAuth 测试 ──

func TestRoleAuth(t *testing.T) {
	m := newTestJWT()
	tests := []struct {
		role       string
		wantStatus int
	}{
		{jwt.RoleService, http.StatusOK},
		{jwt.RoleAdmin, http.StatusOK},
		{jwt.RoleStudent, http.StatusForbidden},
		{jwt.RoleTeacher, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			r := gin.New()
			r.POST("/events", JWTAuth(m, nil), RoleAuth(jwt.RoleService, jwt.RoleAdmin), echoClaims)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/events", nil)
			req.Header.Set("Authorization", bearer(t, m, tt.role, ""))
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestRoleAuth_Unauthenticated(t *testing.T) {
	r := gin.New()
	r.GET("/x", RoleAuth(jwt.RoleAdmin), echoClaims)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ── RateLimit 测试 ──

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		limiter    *fakeLimiter
		limit      int
		wantStatus int
		wantCalls  int
	}{
		{"放行", &fakeLimiter{allow: true}, 10, http.StatusOK, 1},
		{"超限", &fakeLimiter{allow: false}, 10, http.StatusTooManyRequests, 1},
		{"Redis 出错时放行", &fakeLimiter{err: errors.New("redis down")}, 10, http.StatusOK, 1},
		{"limit=0 不限流", &fakeLimiter{allow: false}, 0, http.StatusOK, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/graduation/sweep", func(c *gin.Context) {
				c.Set(CtxUserID, "admin-1")
				c.Next()
			}, RateLimit(tt.limiter, tt.limit, time.Minute), echoClaims)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("POST", "/graduation/sweep", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.limiter.calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, tt.limiter.calls)
			}
			if tt.wantCalls > 0 && tt.limiter.keys[0] != "rate_limit:admin-1:/graduation/sweep" {
				t.Errorf("限流键不符: %s", tt.limiter.keys[0])
			}
		})
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(nil, 1, time.Minute), echoClaims)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// ── BodyLimit 测试 ──

func TestBodyLimit(t *testing.T) {
	read := func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	}

	tests := []struct {
		name       string
		body       []byte
		chunked    bool
		wantStatus int
	}{
		{"未超限", bytes.Repeat([]byte("a"), 16), false, http.StatusOK},
		{"Content-Length 超限", bytes.Repeat([]byte("a"), 64), false, http.StatusRequestEntityTooLarge},
		{"未声明长度但实际超限", bytes.Repeat([]byte("a"), 64), true, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/curricula", BodyLimit(32), read)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/curricula", bytes.NewReader(tt.body))
			if tt.chunked {
				req.ContentLength = -1
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

// ── RequestID 测试 ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequestID(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("应生成 X-Request-ID")
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Errorf("应沿用上游请求 ID，实际=%s", got)
	}
}

// ── CORS 测试 ──

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("预检请求期望 204，实际=%d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("白名单 Origin 应回写跨域头")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Error("应暴露 Content-Disposition")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("非白名单 Origin 不应回写跨域头")
	}
}

func TestRequestID_RejectsControlChars(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequestID(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", "abc def")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got == "abc def" || got == "" {
		t.Errorf("含空白的请求 ID 应重新生成，实际=%q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.GET("/x", SecurityHeaders(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	for header, want := range map[string]string{
		"Cache-Control":          "no-store",
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s: expected %q, got %q", header, want, got)
		}
	}
}
