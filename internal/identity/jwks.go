package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWKSAuthenticator verifies RS256 session tokens against the identity
// provider's JSON Web Key Set. Keys are cached by kid and refetched when an
// unknown kid shows up.
type JWKSAuthenticator struct {
	Issuer  string
	JWKSURL string

	http *http.Client

	mu   sync.Mutex
	keys map[string]*rsa.PublicKey
}

// JWKSOption configures a [JWKSAuthenticator].
type JWKSOption func(*JWKSAuthenticator)

// WithJWKSHTTPClient replaces the client used to fetch the key set.
func WithJWKSHTTPClient(hc *http.Client) JWKSOption {
	return func(a *JWKSAuthenticator) { a.http = hc }
}

// NewJWKSAuthenticator returns an authenticator for tokens issued by issuer
// and signed with a key published at jwksURL.
func NewJWKSAuthenticator(issuer, jwksURL string, opts ...JWKSOption) *JWKSAuthenticator {
	a := &JWKSAuthenticator{
		Issuer:  issuer,
		JWKSURL: jwksURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		keys:    make(map[string]*rsa.PublicKey),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type sessionClaims struct {
	jwt.RegisteredClaims

	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	GivenName string `json:"given_name"`
	Email     string `json:"email"`
}

// Authenticate verifies token and returns the user it names.
func (a *JWKSAuthenticator) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrSignedOut
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(a.Issuer),
		jwt.WithExpirationRequired(),
	)
	claims := &sessionClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return a.keyForKID(ctx, kid)
	})
	if err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return User{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	first := claims.FirstName
	if first == "" {
		first = claims.GivenName
	}
	return User{
		ID:        claims.Subject,
		FullName:  claims.Name,
		FirstName: first,
		Email:     claims.Email,
	}, nil
}

func (a *JWKSAuthenticator) keyForKID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	a.mu.Lock()
	if key, ok := a.keys[kid]; ok {
		a.mu.Unlock()
		return key, nil
	}
	a.mu.Unlock()

	keys, err := a.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	maps.Copy(a.keys, keys)
	if key, ok := a.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("kid %q not found", kid)
}

func (a *JWKSAuthenticator) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.JWKSURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: status %d", res.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			Alg string `json:"alg"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(res.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	out := make(map[string]*rsa.PublicKey)
	for _, k := range jwks.Keys {
		// Some providers omit alg on RSA keys.
		if k.Kty != "RSA" || (k.Alg != "" && k.Alg != "RS256") || k.Kid == "" {
			continue
		}
		pub, err := jwkToPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		out[k.Kid] = pub
	}
	if len(out) == 0 {
		return nil, errors.New("no usable jwk keys")
	}
	return out, nil
}

func jwkToPublicKey(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetBytes(nb)
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: n, E: e}, nil
}

var _ Authenticator = (*JWKSAuthenticator)(nil)
