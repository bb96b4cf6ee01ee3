package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nurture_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type testOperatorConfig struct{ secret string }

func (c testOperatorConfig) GetOperatorJWTSecret() string { return c.secret }

func newOperatorEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ops", OperatorAuth(testOperatorConfig{secret: secret}), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextOperatorKey))
	})
	return engine
}

func TestOperatorAuthAcceptsIssuedToken(t *testing.T) {
	engine := newOperatorEngine("s3cret")
	token, err := IssueOperatorToken("s3cret", "ana", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/ops", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ana" {
		t.Fatalf("expected 200 ana, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestOperatorAuthRejectsWrongSecretAndMissingToken(t *testing.T) {
	engine := newOperatorEngine("s3cret")
	token, _ := IssueOperatorToken("other", "ana", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/ops", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", rec.Code)
	}
}

func TestOperatorAuthDisabledWithoutSecret(t *testing.T) {
	engine := newOperatorEngine("")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRateLimitBlocksBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewIPRateLimiter(rate.Limit(0.001), 1, logger.Nop())
	engine := gin.New()
	engine.GET("/hook", limiter.RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/hook", nil))
	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/hook", nil))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
}

func TestSharedSecretChecksHeaderAndQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/cb", SharedSecret("cb-secret", "X-Callback-Token", "token"), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"header", "/cb", "cb-secret", http.StatusOK},
		{"query", "/cb?token=cb-secret", "", http.StatusOK},
		{"wrong", "/cb", "nope", http.StatusUnauthorized},
		{"missing", "/cb", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, tc.target, nil)
		if tc.header != "" {
			req.Header.Set("X-Callback-Token", tc.header)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}
