// Package auth verifies bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

type Config struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// RolesClaim is the namespaced claim carrying role names.
	RolesClaim string
	CacheTTL   time.Duration
	// RefetchInterval is the minimum time between JWKS downloads. Unknown
	// kids seen in between fail without a fetch.
	RefetchInterval time.Duration
	// SigningKey enables HS256 tokens for local development and tests.
	SigningKey []byte
}

// Principal is the verified caller of a request.
type Principal struct {
	Subject string
	Email   string
	Roles   []string
	Token   string
}

func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether p holds one of roles. No roles means any caller.
func (p *Principal) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// Verifier checks RS256 tokens against the provider JWKS. Keys are cached
// by kid and refetched on a miss, at most once per RefetchInterval.
type Verifier struct {
	cfg     Config
	keys    *cache.Cache
	client  *resty.Client
	fetchMu sync.Mutex
	refetch *rate.Limiter
	parser  *jwt.Parser
}

func NewVerifier(cfg Config) *Verifier {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.RefetchInterval <= 0 {
		cfg.RefetchInterval = time.Minute
	}

	methods := []string{"RS256"}
	if len(cfg.SigningKey) > 0 {
		methods = append(methods, "HS256")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Verifier{
		cfg:     cfg,
		keys:    cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		client:  resty.New().SetTimeout(10 * time.Second),
		refetch: rate.NewLimiter(rate.Every(cfg.RefetchInterval), 1),
		parser:  jwt.NewParser(opts...),
	}
}

func (v *Verifier) Verify(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.keyFunc(ctx)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	p := &Principal{Subject: sub, Token: token}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	if raw, ok := claims[v.cfg.RolesClaim].([]interface{}); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	return p, nil
}

func (v *Verifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() == "HS256" {
			return v.cfg.SigningKey, nil
		}
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.publicKey(ctx, kid)
	}
}

func (v *Verifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := v.keys.Get(kid); ok {
		return key.(*rsa.PublicKey), nil
	}

	v.fetchMu.Lock()
	defer v.fetchMu.Unlock()

	// Another caller may have refreshed while we waited.
	if key, ok := v.keys.Get(kid); ok {
		return key.(*rsa.PublicKey), nil
	}
	if !v.refetch.Allow() {
		return nil, fmt.Errorf("key with kid %q not cached and JWKS was fetched recently", kid)
	}
	if err := v.fetch(ctx); err != nil {
		return nil, err
	}
	if key, ok := v.keys.Get(kid); ok {
		return key.(*rsa.PublicKey), nil
	}
	return nil, fmt.Errorf("key with kid %q not found in JWKS", kid)
}

func (v *Verifier) fetch(ctx context.Context) error {
	if v.cfg.JWKSURL == "" {
		return errors.New("no JWKS url configured")
	}

	var set jwks
	resp, err := v.client.R().
		SetContext(ctx).
		SetResult(&set).
		Get(v.cfg.JWKSURL)
	if err != nil {
		return fmt.Errorf("fetching JWKS: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode())
	}

	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k)
		if err != nil {
			continue
		}
		v.keys.SetDefault(k.Kid, pub)
	}
	return nil
}

func parseRSAPublicKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", fmt.Errorf("%w: invalid authorization format", ErrInvalidToken)
	}
	return parts[1], nil
}

type principalKey struct{}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by NewContext.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}
