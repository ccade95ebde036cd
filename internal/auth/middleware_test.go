package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveWithHeader(t *testing.T, m *Manager, header string) (*httptest.ResponseRecorder, Identity) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen Identity
	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		id, err := IdentityFrom(c.Request.Context())
		if err != nil {
			t.Errorf("identity missing after auth: %v", err)
		}
		seen = id
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set(authorizationHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	return body["error"]
}

func TestRequireAccessToken_InjectsIdentity(t *testing.T) {
	m := newTestManager(t)
	pair, err := m.IssuePair(time.Now(), "nimal", "staff")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w, id := serveWithHeader(t, m, "bearer "+pair.AccessToken)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if id.UserID != "nimal" || id.Role != "staff" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestRequireAccessToken_MissingOrMalformedHeader(t *testing.T) {
	m := newTestManager(t)
	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "token"} {
		w, _ := serveWithHeader(t, m, h)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", h, w.Code)
		}
		if got := errorBody(t, w); got != "missing bearer token" {
			t.Fatalf("header %q: unexpected error %q", h, got)
		}
	}
}

func TestRequireAccessToken_ExpiredToken(t *testing.T) {
	m := newTestManager(t)
	pair, err := m.IssuePair(time.Now().Add(-2*time.Hour), "nimal", "staff")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w, _ := serveWithHeader(t, m, "Bearer "+pair.AccessToken)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if got := errorBody(t, w); got != "token expired" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestRequireAccessToken_RejectsRefreshToken(t *testing.T) {
	m := newTestManager(t)
	pair, err := m.IssuePair(time.Now(), "nimal", "staff")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w, _ := serveWithHeader(t, m, "Bearer "+pair.RefreshToken)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if got := errorBody(t, w); got != "invalid token" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestIdentityFrom(t *testing.T) {
	if _, err := IdentityFrom(context.Background()); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
	ctx := WithIdentity(context.Background(), "owner", "owner")
	if uid, err := UserID(ctx); err != nil || uid != "owner" {
		t.Fatalf("unexpected user id %q err %v", uid, err)
	}
	if _, err := Role(WithIdentity(context.Background(), "owner", "")); err == nil {
		t.Fatalf("expected error for empty role")
	}
}
