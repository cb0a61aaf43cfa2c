package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

var testConfig = Config{Secret: "unit-test-secret", Issuer: "productivy-test", TTL: time.Hour}

func TestIssueParseRoundTrip(t *testing.T) {
	userID := uuid.New()
	token, err := Issue(userID, "dev@example.com", testConfig)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := Parse(token, testConfig)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected %s got %s", userID, claims.UserID)
	}
	if claims.Email != "dev@example.com" {
		t.Fatalf("unexpected email %s", claims.Email)
	}
	if claims.ExpiresAt.Before(time.Now()) {
		t.Fatal("token must not be expired")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := Issue(uuid.New(), "dev@example.com", testConfig)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := testConfig
	other.Secret = "a-different-secret"
	if _, err := Parse(token, other); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token, err := Issue(uuid.New(), "dev@example.com", testConfig)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := testConfig
	other.Issuer = "someone-else"
	if _, err := Parse(token, other); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestIssueStampsExpiryFromClock(t *testing.T) {
	mock := quartz.NewMock(t)
	issued := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	mock.Set(issued)

	cfg := testConfig
	cfg.Clock = mock

	token, err := Issue(uuid.New(), "dev@example.com", cfg)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := Parse(token, cfg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !claims.ExpiresAt.Equal(issued.Add(cfg.TTL)) {
		t.Fatalf("expected expiry %s got %s", issued.Add(cfg.TTL), claims.ExpiresAt)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	mock := quartz.NewMock(t)
	issued := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	mock.Set(issued)

	cfg := testConfig
	cfg.Clock = mock

	token, err := Issue(uuid.New(), "dev@example.com", cfg)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(token, cfg); err != nil {
		t.Fatalf("token must be valid before expiry: %v", err)
	}

	mock.Set(issued.Add(cfg.TTL + time.Minute))
	if _, err := Parse(token, cfg); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestParseEmptyToken(t *testing.T) {
	if _, err := Parse("   ", testConfig); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken got %v", err)
	}
}

func TestMiddlewareReadsSessionCookie(t *testing.T) {
	userID := uuid.New()
	token, err := Issue(userID, "dev@example.com", testConfig)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	})
	mw := NewMiddleware(testConfig, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/activity/current", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if seen == nil || seen.UserID != userID {
		t.Fatalf("claims not propagated: %+v", seen)
	}
}

func TestMiddlewareRejectsMissingCookie(t *testing.T) {
	mw := NewMiddleware(testConfig, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/activity/current", nil)
	rr := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestMiddlewareSkipper(t *testing.T) {
	mw := NewMiddleware(testConfig, func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	})
	ran := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ran = true })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, req)

	if !ran || rr.Code != http.StatusOK {
		t.Fatalf("skipped path must pass through, ran=%v code=%d", ran, rr.Code)
	}
}
