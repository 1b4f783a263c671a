package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zexoverz/dominion-sub001/internal/domain"
	"go.uber.org/zap"
)

func signToken(t *testing.T, key *rsa.PrivateKey, claims *domain.OperatorClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func operatorClaims(expiresAt time.Time) *domain.OperatorClaims {
	return &domain.OperatorClaims{
		UserID: "operator-1",
		Scopes: map[string]bool{"admin": true},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator-1",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}

func TestVerifyTokenRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	v := NewBaseValidator(&key.PublicKey)

	tokenStr := signToken(t, key, operatorClaims(time.Now().Add(time.Hour)))

	claims, err := v.VerifyToken("Bearer " + tokenStr)
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if claims.UserID != "operator-1" || !claims.Scopes["admin"] {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestVerifyTokenExpired(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	v := NewBaseValidator(&key.PublicKey)

	tokenStr := signToken(t, key, operatorClaims(time.Now().Add(-time.Minute)))

	if _, err := v.VerifyToken(tokenStr); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestVerifyTokenWrongKey(t *testing.T) {
	signKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	v := NewBaseValidator(&otherKey.PublicKey)

	tokenStr := signToken(t, signKey, operatorClaims(time.Now().Add(time.Hour)))

	if _, err := v.VerifyToken(tokenStr); err == nil {
		t.Fatal("token signed with foreign key must be rejected")
	}
}

func TestMiddlewarePropagatesIdentity(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	v := NewBaseValidator(&key.PublicKey)
	mw := NewMiddleware(v, zap.NewNop())

	var gotUserID string
	var gotScopes map[string]bool
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserID(r.Context())
		gotScopes = Scopes(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/proposals/pending", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, operatorClaims(time.Now().Add(time.Hour))))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID != "operator-1" || !gotScopes["admin"] {
		t.Fatalf("identity not propagated: %q %v", gotUserID, gotScopes)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	mw := NewMiddleware(NewBaseValidator(&key.PublicKey), zap.NewNop())

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/proposals/pending", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
