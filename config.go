package pinauth

import (
	"errors"
	"time"

	"github.com/finwise/pinauth/pin"
)

// Config assembles all engine settings. Instances are cloned by the Builder
// and treated as immutable after Build.
type Config struct {
	Token    TokenConfig
	Pin      PinConfig
	Pepper   PepperConfig
	Ledger   LedgerConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls access/refresh token issuance.
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PIN CONFIG
====================================
*/

// PinConfig controls PIN hashing, lockout, and upgrade-on-login.
type PinConfig struct {
	Digits         int
	TargetCost     int
	MaxFails       int
	LockWindow     time.Duration
	UpgradeOnLogin bool
}

/*
====================================
PEPPER CONFIG
====================================
*/

// PepperConfig declares the pepper key set and the AES-256 key-encryption key
// used to open sealed pepper envelopes. Ciphertexts themselves come from the
// pepper source supplied to the Builder.
type PepperConfig struct {
	EncryptionKey   []byte
	ActiveAlias     string
	RetiringAliases []string
	RevokedAliases  []string
}

/*
====================================
LEDGER CONFIG
====================================
*/

// LedgerConfig controls the Redis-backed refresh token ledger.
type LedgerConfig struct {
	RedisPrefix string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig toggles the rotation and reuse-blocking policies.
type SecurityConfig struct {
	EnforceRefreshRotation       bool
	EnforceRefreshReuseDetection bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Pin: PinConfig{
			Digits:         4,
			TargetCost:     12,
			MaxFails:       5,
			LockWindow:     5 * time.Minute,
			UpgradeOnLogin: true,
		},
		Ledger: LedgerConfig{
			RedisPrefix: "prl",
		},
		Security: SecurityConfig{
			EnforceRefreshRotation:       true,
			EnforceRefreshReuseDetection: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	out.Pepper.EncryptionKey = cloneBytes(cfg.Pepper.EncryptionKey)
	out.Pepper.RetiringAliases = append([]string(nil), cfg.Pepper.RetiringAliases...)
	out.Pepper.RevokedAliases = append([]string(nil), cfg.Pepper.RevokedAliases...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. It is called by
// [Builder.Build]; direct use is handy in startup health checks.
func (c *Config) Validate() error {
	// Token
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.SigningMethod != "hs256" && c.Token.SigningMethod != "ed25519" {
		return errors.New("unsupported token signing method")
	}
	if c.Token.SigningMethod == "hs256" && len(c.Token.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.Token.SigningMethod == "ed25519" && (len(c.Token.PrivateKey) == 0 || len(c.Token.PublicKey) == 0) {
		return errors.New("ed25519 requires PrivateKey and PublicKey")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token Leeway must be >= 0")
	}

	// Pin
	if c.Pin.Digits < 4 || c.Pin.Digits > 8 {
		return errors.New("Pin Digits must be between 4 and 8")
	}
	if c.Pin.TargetCost < pin.MinCost || c.Pin.TargetCost > pin.MaxCost {
		return errors.New("Pin TargetCost out of range")
	}
	if c.Pin.MaxFails < 1 {
		return errors.New("Pin MaxFails must be >= 1")
	}
	if c.Pin.LockWindow <= 0 {
		return errors.New("Pin LockWindow must be > 0")
	}

	// Pepper
	if len(c.Pepper.EncryptionKey) != 32 {
		return errors.New("Pepper EncryptionKey must be 32 bytes")
	}
	if c.Pepper.ActiveAlias == "" {
		return errors.New("Pepper ActiveAlias required")
	}

	return nil
}
