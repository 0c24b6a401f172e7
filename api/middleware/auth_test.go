package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

type stubVerifier struct {
	claims identity.Claims
	err    error
}

func (s stubVerifier) Verify(context.Context, string) (identity.Claims, error) {
	return s.claims, s.err
}

type stubResolver struct {
	storeID uuid.UUID
	err     error
}

func (s stubResolver) ResolveSellerStore(context.Context, string) (uuid.UUID, error) {
	return s.storeID, s.err
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(stubVerifier{claims: identity.Claims{UserID: "u1"}}, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(stubVerifier{err: identity.ErrInvalidCredential}, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	var captured identity.Claims
	handler := Auth(stubVerifier{claims: identity.Claims{UserID: "u1", Email: "a@example.com", Plan: "plus"}}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured, _ = ClaimsFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != "u1" || !captured.IsMember() {
		t.Fatalf("unexpected claims %#v", captured)
	}
}

func TestOptionalAuthTreatsInvalidTokenAsAnonymous(t *testing.T) {
	var sawClaims bool
	handler := OptionalAuth(stubVerifier{err: errors.New("expired")}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, sawClaims = ClaimsFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	for _, header := range []string{"", "Bearer expired", "Token abc"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK || sawClaims {
			t.Fatalf("header %q: expected anonymous pass-through, got %d claims=%v", header, resp.Code, sawClaims)
		}
	}
}

func TestOptionalAuthAttachesClaims(t *testing.T) {
	var userID string
	handler := OptionalAuth(stubVerifier{claims: identity.Claims{UserID: "u2"}}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID = UserIDFromContext(r.Context())
		}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer ok")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if userID != "u2" {
		t.Fatalf("expected u2 got %q", userID)
	}
}

func TestSellerStoreInjectsStoreID(t *testing.T) {
	storeID := uuid.New()
	var got string
	handler := SellerStore(stubResolver{storeID: storeID}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = StoreIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), identity.Claims{UserID: "seller"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != storeID.String() {
		t.Fatalf("expected store %s got %q", storeID, got)
	}
}

func TestSellerStorePropagatesResolverError(t *testing.T) {
	handler := SellerStore(stubResolver{err: pkgerrors.New(pkgerrors.CodeNotFound, "Store not found")}, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), identity.Claims{UserID: "seller"}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Store not found") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestRequireAdmin(t *testing.T) {
	cfg := config.AuthConfig{AdminEmails: []string{"admin@example.com"}}
	handler := RequireAdmin(cfg, nil)(http.HandlerFunc(okHandler))

	cases := map[string]int{
		"admin@example.com": http.StatusOK,
		"ADMIN@example.com": http.StatusOK,
		"user@example.com":  http.StatusForbidden,
	}
	for email, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithClaims(req.Context(), identity.Claims{UserID: "u", Email: email}))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("%s: expected %d got %d", email, want, resp.Code)
		}
	}
}

func TestRateLimitCountsGuestEmail(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("checkout", time.Minute, 0, 1), store, nil)(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"isGuest":true,"guestInfo":{"email":"Guest@Example.com"}}`))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestRateLimitCountsAuthenticatedUser(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("checkout", time.Minute, 0, 2), store, nil)(http.HandlerFunc(okHandler))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
		req = req.WithContext(WithClaims(req.Context(), identity.Claims{UserID: "u1"}))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if i < 2 && resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, resp.Code)
		}
		if i == 2 && resp.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 got %d", resp.Code)
		}
	}
}

func TestRateLimitIPLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("checkout", time.Minute, 1, 0), store, nil)(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req.RemoteAddr = "5.6.7.8:1234"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if i == 1 && resp.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", resp.Code)
		}
	}
}

type fakeRateStore struct {
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}
