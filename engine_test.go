package pinauth

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/finwise/pinauth/pepper"
	"github.com/finwise/pinauth/pin"
	"github.com/redis/go-redis/v9"
)

type mockDirectory struct {
	mu    sync.Mutex
	users map[string]UserRecord // phone → record
	err   error
}

func (m *mockDirectory) FindUserByPhone(_ context.Context, phone string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return UserRecord{}, m.err
	}
	user, ok := m.users[phone]
	if !ok {
		return UserRecord{}, errors.New("user not found")
	}
	return user, nil
}

type mockCredentials struct {
	mu      sync.Mutex
	creds   map[string]pin.Credential
	saveErr error
	saves   int
}

func (m *mockCredentials) GetCredential(_ context.Context, userID string) (pin.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.creds[userID]
	if !ok {
		return pin.Credential{}, errors.New("credential not found")
	}
	return cred, nil
}

func (m *mockCredentials) SaveCredential(_ context.Context, cred pin.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.creds[cred.UserID] = cred
	m.saves++
	return nil
}

func (m *mockCredentials) get(t *testing.T, userID string) pin.Credential {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.creds[userID]
	if !ok {
		t.Fatalf("no credential stored for %s", userID)
	}
	return cred
}

type testHarness struct {
	engine      *Engine
	directory   *mockDirectory
	credentials *mockCredentials
	source      pepper.StaticSource
	kek         []byte
	redis       *redis.Client
	mini        *miniredis.Miniredis
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.PrivateKey = []byte("engine-test-signing-secret")
	cfg.Token.Issuer = "pinauth-test"
	cfg.Pin.TargetCost = pin.MinCost
	cfg.Pin.MaxFails = 3
	cfg.Pin.LockWindow = time.Minute
	cfg.Pepper.ActiveAlias = "k1"
	return cfg
}

// sealedSecret builds the envelope format the pepper store expects.
func sealedSecret(t *testing.T, kek []byte, secret string) []byte {
	t.Helper()

	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		t.Fatalf("rand.Read failed: %v", err)
	}
	envelope, err := pepper.Seal(kek, nonce, []byte(secret))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	return envelope
}

func newTestHarness(t *testing.T, cfg Config) *testHarness {
	t.Helper()
	return newTestHarnessWithSink(t, cfg, nil)
}

func newTestHarnessWithSink(t *testing.T, cfg Config, sink AuditSink) *testHarness {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	kek := make([]byte, 32)
	if _, err := rand.Read(kek); err != nil {
		t.Fatalf("rand.Read failed: %v", err)
	}
	cfg.Pepper.EncryptionKey = kek

	source := pepper.StaticSource{
		"k1": sealedSecret(t, kek, "pepper-secret-one"),
		"k2": sealedSecret(t, kek, "pepper-secret-two"),
	}

	directory := &mockDirectory{users: map[string]UserRecord{}}
	credentials := &mockCredentials{creds: map[string]pin.Credential{}}

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(directory).
		WithCredentialProvider(credentials).
		WithPepperSource(source)
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testHarness{
		engine:      engine,
		directory:   directory,
		credentials: credentials,
		source:      source,
		kek:         kek,
		redis:       rdb,
		mini:        mr,
	}
}

// addUser registers a user with a PIN hashed under the active pepper key.
func (h *testHarness) addUser(t *testing.T, userID, phone, pinCode string) {
	t.Helper()

	h.directory.mu.Lock()
	h.directory.users[phone] = UserRecord{UserID: userID, Phone: phone}
	h.directory.mu.Unlock()

	if err := h.engine.RegisterPin(context.Background(), userID, pinCode); err != nil {
		t.Fatalf("RegisterPin failed: %v", err)
	}
}

func TestBuildRequiresPorts(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	cfg.Pepper.EncryptionKey = make([]byte, 32)

	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected error without redis")
	}
	if _, err := New().WithConfig(cfg).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without user directory")
	}

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(&mockDirectory{users: map[string]UserRecord{}}).
		WithCredentialProvider(&mockCredentials{creds: map[string]pin.Credential{}}).
		WithPepperSource(pepper.StaticSource{})
	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected error reusing a builder")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	cfg.Pepper.EncryptionKey = []byte("short")

	_, err = New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(&mockDirectory{users: map[string]UserRecord{}}).
		WithCredentialProvider(&mockCredentials{creds: map[string]pin.Credential{}}).
		WithPepperSource(pepper.StaticSource{}).
		Build()
	if err == nil {
		t.Fatal("expected validation error for bad encryption key")
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestHarness(t, testConfig())
	ctx := context.Background()

	if err := h.engine.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if err := h.engine.RevokePepperKey(ctx, "k1"); err != nil {
		t.Fatalf("RevokePepperKey failed: %v", err)
	}
	if err := h.engine.HealthCheck(ctx); !errors.Is(err, ErrNoActivePepperKey) {
		t.Fatalf("expected ErrNoActivePepperKey, got %v", err)
	}
}

func TestEngineNotReady(t *testing.T) {
	var engine *Engine

	if _, err := engine.Login(context.Background(), "p", "1234", "d"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, _, err := (&Engine{}).Rotate(context.Background(), "tok", "d"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
