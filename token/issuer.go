package token

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/finwise/pinauth/internal"
	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 over a shared key.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// TypeRefresh is the typ claim carried by refresh tokens. Access tokens carry
// no typ claim.
const TypeRefresh = "refresh"

// ErrTokenInvalid is the single outcome for malformed, unsigned, mis-signed,
// or expired tokens. Library-level parse errors are never surfaced raw.
var ErrTokenInvalid = errors.New("token: invalid token")

// Config holds issuer parameters. Instances are treated as immutable after
// NewIssuer.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims is the closed claim set embedded in every token.
type Claims struct {
	DeviceID  string `json:"did"`
	TokenType string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies signed tokens. Safe for concurrent use.
type Issuer struct {
	config Config
	now    func() time.Time
}

// NewIssuer validates the configuration and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("token: hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("token: unsupported signing method")
	}

	return &Issuer{config: cfg, now: time.Now}, nil
}

// CreateAccess mints a short-lived access token for the user/device pair and
// returns the compact token alongside its claims.
func (i *Issuer) CreateAccess(userID, deviceID string) (string, *Claims, error) {
	return i.create(userID, deviceID, "", i.config.AccessTTL)
}

// CreateRefresh mints a refresh token (typ "refresh", longer TTL). The claims
// carry the jti the ledger tracks the token under.
func (i *Issuer) CreateRefresh(userID, deviceID string) (string, *Claims, error) {
	return i.create(userID, deviceID, TypeRefresh, i.config.RefreshTTL)
}

func (i *Issuer) create(userID, deviceID, typ string, ttl time.Duration) (string, *Claims, error) {
	jti, err := internal.NewTokenID()
	if err != nil {
		return "", nil, err
	}

	now := i.now()
	claims := &Claims{
		DeviceID:  deviceID,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    i.config.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(i.method(), claims).SignedString(i.signKey())
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse verifies the signature and expiry and returns the claims. All parse
// and signature failures are normalized to ErrTokenInvalid.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.verifyKey()
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Validate reports whether the token's signature and expiry check out. It does
// not consult the ledger.
func (i *Issuer) Validate(tokenStr string) bool {
	_, err := i.Parse(tokenStr)
	return err == nil
}

// DeviceID extracts the did claim. Fails closed: any parse or signature error
// yields ("", false).
func (i *Issuer) DeviceID(tokenStr string) (string, bool) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return "", false
	}
	return claims.DeviceID, true
}

// Subject extracts the sub claim, failing closed.
func (i *Issuer) Subject(tokenStr string) (string, bool) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

// TokenID extracts the jti claim, failing closed.
func (i *Issuer) TokenID(tokenStr string) (string, bool) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return "", false
	}
	return claims.ID, true
}

// TokenType extracts the typ claim, failing closed. Access tokens yield "".
func (i *Issuer) TokenType(tokenStr string) (string, bool) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return "", false
	}
	return claims.TokenType, true
}

// ExpiresAt extracts the expiry, failing closed.
func (i *Issuer) ExpiresAt(tokenStr string) (time.Time, bool) {
	claims, err := i.Parse(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (i *Issuer) method() jwt.SigningMethod {
	switch i.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (i *Issuer) signKey() interface{} {
	switch i.config.SigningMethod {
	case MethodEd25519:
		key, _ := parseEdPrivateKey(i.config.PrivateKey)
		return key
	default:
		return i.config.PrivateKey
	}
}

func (i *Issuer) verifyKey() (interface{}, error) {
	switch i.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(i.config.PublicKey)
	default:
		return i.config.PrivateKey, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 public key type")
	}
	return edKey, nil
}
