package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"portcontracts/config"
	"portcontracts/services"
	"portcontracts/utils"
)

func testApplication(t *testing.T) *application {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	cfg.RateLimit.Requests = 100
	cfg.RateLimit.Window = time.Minute
	cfg.Warnings.HorizonDays = 30
	cfg.Warnings.Timezone = "UTC"
	cfg.Drafts.TTL = time.Hour

	return newApplication(cfg, nil, services.NewStaticLookupProvider(), nil, utils.NewMetrics())
}

func bearer(t *testing.T, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7,
		"email":   "ketoan@port.vn",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func TestAPIRequiresToken(t *testing.T) {
	router := testApplication(t).router()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/lookups/statuses", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/lookups/statuses", nil)
	req.Header.Set("Authorization", bearer(t, "test-secret"))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "100" {
		t.Errorf("rate limit header: got %q", rr.Header().Get("X-RateLimit-Limit"))
	}
	if !strings.Contains(rr.Body.String(), `"cancelled"`) {
		t.Errorf("statuses response: %s", rr.Body.String())
	}
}

func TestOpsEndpoints(t *testing.T) {
	app := testApplication(t)
	ops := app.opsRouter()

	rr := httptest.NewRecorder()
	ops.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("healthz: got %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	ops.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("readyz: got %d want 200", rr.Code)
	}

	app.ready = func(context.Context) error { return errors.New("database is down") }
	rr = httptest.NewRecorder()
	ops.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing dependency: got %d want 503", rr.Code)
	}

	rr = httptest.NewRecorder()
	ops.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Errorf("metrics: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	ops.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusMethodNotAllowed)
	}
}
