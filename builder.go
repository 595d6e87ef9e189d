package pinauth

import (
	"errors"

	"github.com/finwise/pinauth/ledger"
	"github.com/finwise/pinauth/pepper"
	"github.com/finwise/pinauth/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until Build, and none of the ports are touched before first use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory    UserDirectory
	credentials  CredentialProvider
	pepperSource pepper.Source
	auditSink    AuditSink

	built bool
}

// New creates a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. The config is cloned.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the refresh ledger.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserDirectory supplies the identity-lookup port.
func (b *Builder) WithUserDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

// WithCredentialProvider supplies the durable PIN credential store.
func (b *Builder) WithCredentialProvider(p CredentialProvider) *Builder {
	b.credentials = p
	return b
}

// WithPepperSource supplies the encrypted pepper material source (KMS port).
func (b *Builder) WithPepperSource(s pepper.Source) *Builder {
	b.pepperSource = s
	return b
}

// WithAuditSink supplies the audit event sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, assembles the pepper registry, token
// issuer, and refresh ledger, and returns a ready Engine. A Builder can only
// be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.credentials == nil {
		return nil, errors.New("credential provider required")
	}
	if b.pepperSource == nil {
		return nil, errors.New("pepper source required")
	}

	// -------- PEPPER REGISTRY --------
	registry := pepper.NewRegistry()
	if err := registry.Register(cfg.Pepper.ActiveAlias, pepper.StatusActive); err != nil {
		return nil, err
	}
	for _, alias := range cfg.Pepper.RetiringAliases {
		if err := registry.Register(alias, pepper.StatusRetiring); err != nil {
			return nil, err
		}
	}
	for _, alias := range cfg.Pepper.RevokedAliases {
		if err := registry.Register(alias, pepper.StatusRevoked); err != nil {
			return nil, err
		}
	}

	peppers, err := pepper.NewStore(b.pepperSource, cfg.Pepper.EncryptionKey)
	if err != nil {
		return nil, err
	}

	// -------- TOKEN ISSUER --------
	issuer, err := token.NewIssuer(token.Config{
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	// -------- REFRESH LEDGER --------
	store := ledger.NewStore(b.redis, cfg.Ledger.RedisPrefix)

	engine := &Engine{
		config:      cfg,
		registry:    registry,
		peppers:     peppers,
		issuer:      issuer,
		ledger:      store,
		directory:   b.directory,
		credentials: b.credentials,
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
