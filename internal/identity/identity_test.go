package identity_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mockhire/mockhire/internal/identity"
)

const testIssuer = "https://clerk.mockhire.dev"

type testClaims struct {
	jwt.RegisteredClaims
	Name      string `json:"name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	GivenName string `json:"given_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

func newJWKSServer(t *testing.T, priv *rsa.PrivateKey, kid string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		n := base64.RawURLEncoding.EncodeToString(priv.PublicKey.N.Bytes())
		e := base64.RawURLEncoding.EncodeToString([]byte{1, 0, 1}) // 65537
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]any{
				{"kid": "enc", "kty": "EC", "crv": "P-256"},
				{"kid": kid, "kty": "RSA", "alg": "RS256", "use": "sig", "n": n, "e": e},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func sign(t *testing.T, priv *rsa.PrivateKey, kid string, c testClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func validClaims() testClaims {
	now := time.Now().UTC()
	return testClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "user_2abc",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Name:      "Ada Lovelace",
		GivenName: "Ada",
		Email:     "ada@example.com",
	}
}

func TestJWKSAuthenticator_SuccessAndCache(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen rsa: %v", err)
	}
	srv, calls := newJWKSServer(t, priv, "k1")
	a := identity.NewJWKSAuthenticator(testIssuer, srv.URL, identity.WithJWKSHTTPClient(srv.Client()))

	token := sign(t, priv, "k1", validClaims())
	u, err := a.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	want := identity.User{ID: "user_2abc", FullName: "Ada Lovelace", FirstName: "Ada", Email: "ada@example.com"}
	if u != want {
		t.Errorf("user = %+v, want %+v", u, want)
	}

	if _, err := a.Authenticate(context.Background(), token); err != nil {
		t.Fatalf("Authenticate cached: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("jwks fetches = %d, want 1", calls.Load())
	}
}

func TestJWKSAuthenticator_Rejects(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen rsa: %v", err)
	}
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen rsa: %v", err)
	}
	srv, _ := newJWKSServer(t, priv, "k1")
	a := identity.NewJWKSAuthenticator(testIssuer, srv.URL, identity.WithJWKSHTTPClient(srv.Client()))

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "https://evil.example.com"
	noSubject := validClaims()
	noSubject.Subject = ""
	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"expired", sign(t, priv, "k1", expired)},
		{"wrong issuer", sign(t, priv, "k1", wrongIssuer)},
		{"no subject", sign(t, priv, "k1", noSubject)},
		{"no expiry", sign(t, priv, "k1", noExpiry)},
		{"missing kid", sign(t, priv, "", validClaims())},
		{"unknown kid", sign(t, priv, "k2", validClaims())},
		{"wrong key", sign(t, other, "k1", validClaims())},
		{"garbage", "not.a.jwt"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), tc.token)
			if !errors.Is(err, identity.ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWKSAuthenticator_EmptyToken(t *testing.T) {
	t.Parallel()
	a := identity.NewJWKSAuthenticator(testIssuer, "http://127.0.0.1:1/jwks")
	if _, err := a.Authenticate(context.Background(), ""); !errors.Is(err, identity.ErrSignedOut) {
		t.Errorf("err = %v, want ErrSignedOut", err)
	}
}

func TestStatic(t *testing.T) {
	t.Parallel()
	u := identity.User{ID: "dev", FirstName: "Dev"}
	got, err := identity.Static{User: u}.Authenticate(context.Background(), "")
	if err != nil || got != u {
		t.Errorf("Authenticate = %+v, %v", got, err)
	}
	if _, err := (identity.Static{}).Authenticate(context.Background(), ""); !errors.Is(err, identity.ErrSignedOut) {
		t.Errorf("err = %v, want ErrSignedOut", err)
	}
}

func TestUser_DisplayName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		user identity.User
		want string
	}{
		{identity.User{FullName: "Ada Lovelace", FirstName: "Ada"}, "Ada Lovelace"},
		{identity.User{FullName: "  ", FirstName: "Ada"}, "Ada"},
		{identity.User{}, ""},
	}
	for _, tc := range tests {
		if got := tc.user.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tc.user, got, tc.want)
		}
	}
}
