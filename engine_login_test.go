package pinauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginSuccess(t *testing.T) {
	h := newTestHarness(t, testConfig())
	h.addUser(t, "user-1", "+15550001", "4321")

	access, err := h.engine.Login(context.Background(), "+15550001", "4321", "device-a")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	sub, ok := h.engine.issuer.Subject(access)
	if !ok || sub != "user-1" {
		t.Fatalf("unexpected subject %q ok=%v", sub, ok)
	}
	did, ok := h.engine.issuer.DeviceID(access)
	if !ok || did != "device-a" {
		t.Fatalf("unexpected device %q ok=%v", did, ok)
	}
	typ, ok := h.engine.issuer.TokenType(access)
	if !ok || typ != "" {
		t.Fatalf("access token must not carry a typ claim, got %q", typ)
	}
}

func TestLoginCollapsesCredentialErrors(t *testing.T) {
	h := newTestHarness(t, testConfig())
	h.addUser(t, "user-1", "+15550001", "4321")
	ctx := context.Background()

	cases := []struct {
		name  string
		phone string
		pin   string
	}{
		{"unknown phone", "+15559999", "4321"},
		{"wrong pin", "+15550001", "0000"},
		{"malformed pin", "+15550001", "43a1"},
		{"short pin", "+15550001", "43"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.engine.Login(ctx, tc.phone, tc.pin, "device-a"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginMalformedPinDoesNotTouchCounter(t *testing.T) {
	h := newTestHarness(t, testConfig())
	h.addUser(t, "user-1", "+15550001", "4321")

	if _, err := h.engine.Login(context.Background(), "+15550001", "43a1", "device-a"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := h.credentials.get(t, "user-1").FailedCount; got != 0 {
		t.Fatalf("malformed input must not count as a failure, got %d", got)
	}
}

func TestLoginWrongPinPersistsCounter(t *testing.T) {
	h := newTestHarness(t, testConfig())
	h.addUser(t, "user-1", "+15550001", "4321")

	if _, err := h.engine.Login(context.Background(), "+15550001", "0000", "device-a"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := h.credentials.get(t, "user-1").FailedCount; got != 1 {
		t.Fatalf("expected persisted failure count 1, got %d", got)
	}
}

func TestLoginLockoutAtThreshold(t *testing.T) {
	cfg := testConfig()
	h := newTestHarness(t, cfg)
	h.addUser(t, "user-1", "+15550001", "4321")
	ctx := context.Background()

	for i := 0; i < cfg.Pin.MaxFails; i++ {
		if _, err := h.engine.Login(ctx, "+15550001", "0000", "device-a"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	cred := h.credentials.get(t, "user-1")
	if cred.LockedUntil.IsZero() {
		t.Fatal("expected lock window after threshold")
	}
	if cred.FailedCount != 0 {
		t.Fatalf("expected counter reset on lock, got %d", cred.FailedCount)
	}

	// The correct PIN is rejected while locked.
	if _, err := h.engine.Login(ctx, "+15550001", "4321", "device-a"); !errors.Is(err, ErrPinLocked) {
		t.Fatalf("expected ErrPinLocked, got %v", err)
	}
}

func TestLoginAfterLockExpiry(t *testing.T) {
	h := newTestHarness(t, testConfig())
	h.addUser(t, "user-1", "+15550001", "4321")

	h.credentials.mu.Lock()
	stored := h.credentials.creds["user-1"]
	stored.LockedUntil = time.Now().Add(-time.Second)
	h.credentials.creds["user-1"] = stored
	h.credentials.mu.Unlock()

	if _, err := h.engine.Login(context.Background(), "+15550001", "4321", "device-a"); err != nil {
		t.Fatalf("expected login after lock expiry, got %v", err)
	}
	if got := h.credentials.get(t, "user-1"); !got.LockedUntil.IsZero() {
		t.Fatal("expected stale lock cleared on success")
	}
}

func TestLoginRevokedPepperKey(t *testing.T) {
	h := newTestHarness(t, testConfig())
	h.addUser(t, "user-1", "+15550001", "4321")
	ctx := context.Background()

	if err := h.engine.RevokePepperKey(ctx, "k1"); err != nil {
		t.Fatalf("RevokePepperKey failed: %v", err)
	}

	if _, err := h.engine.Login(ctx, "+15550001", "4321", "device-a"); !errors.Is(err, ErrPepperKeyRevoked) {
		t.Fatalf("expected ErrPepperKeyRevoked, got %v", err)
	}
}

func TestLoginUpgradesCredentialAfterPromotion(t *testing.T) {
	cfg := testConfig()
	cfg.Pepper.RetiringAliases = []string{"k2"}
	h := newTestHarness(t, cfg)
	h.addUser(t, "user-1", "+15550001", "4321")
	ctx := context.Background()

	if err := h.engine.PromotePepperKey(ctx, "k2"); err != nil {
		t.Fatalf("PromotePepperKey failed: %v", err)
	}

	if _, err := h.engine.Login(ctx, "+15550001", "4321", "device-a"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	cred := h.credentials.get(t, "user-1")
	if cred.PepperKeyAlias != "k2" {
		t.Fatalf("expected credential re-hashed under k2, got %s", cred.PepperKeyAlias)
	}

	// The upgraded credential keeps verifying.
	if _, err := h.engine.Login(ctx, "+15550001", "4321", "device-a"); err != nil {
		t.Fatalf("Login after upgrade failed: %v", err)
	}
}

func TestLoginUpgradeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Pin.UpgradeOnLogin = false
	cfg.Pepper.RetiringAliases = []string{"k2"}
	h := newTestHarness(t, cfg)
	h.addUser(t, "user-1", "+15550001", "4321")
	ctx := context.Background()

	if err := h.engine.PromotePepperKey(ctx, "k2"); err != nil {
		t.Fatalf("PromotePepperKey failed: %v", err)
	}
	if _, err := h.engine.Login(ctx, "+15550001", "4321", "device-a"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if got := h.credentials.get(t, "user-1").PepperKeyAlias; got != "k1" {
		t.Fatalf("expected credential untouched with upgrade off, got %s", got)
	}
}

func TestLoginSaveFailureSurfaces(t *testing.T) {
	h := newTestHarness(t, testConfig())
	h.addUser(t, "user-1", "+15550001", "4321")

	h.credentials.mu.Lock()
	h.credentials.saveErr = errors.New("database down")
	h.credentials.mu.Unlock()

	if _, err := h.engine.Login(context.Background(), "+15550001", "0000", "device-a"); !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable when the counter cannot persist, got %v", err)
	}
}

func TestRegisterPinRequiresActiveKey(t *testing.T) {
	h := newTestHarness(t, testConfig())
	ctx := context.Background()

	if err := h.engine.RevokePepperKey(ctx, "k1"); err != nil {
		t.Fatalf("RevokePepperKey failed: %v", err)
	}
	if err := h.engine.RegisterPin(ctx, "user-2", "4321"); !errors.Is(err, ErrNoActivePepperKey) {
		t.Fatalf("expected ErrNoActivePepperKey, got %v", err)
	}
}

func TestRegisterPinRejectsMalformedPin(t *testing.T) {
	h := newTestHarness(t, testConfig())

	if err := h.engine.RegisterPin(context.Background(), "user-2", "12"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginWithRefreshMintsRotatableToken(t *testing.T) {
	h := newTestHarness(t, testConfig())
	h.addUser(t, "user-1", "+15550001", "4321")
	ctx := context.Background()

	access, refresh, err := h.engine.LoginWithRefresh(ctx, "+15550001", "4321", "device-a")
	if err != nil {
		t.Fatalf("LoginWithRefresh failed: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("expected both tokens")
	}

	typ, ok := h.engine.issuer.TokenType(refresh)
	if !ok || typ != "refresh" {
		t.Fatalf("expected refresh typ, got %q", typ)
	}

	newAccess, newRefresh, err := h.engine.Rotate(ctx, refresh, "device-a")
	if err != nil {
		t.Fatalf("Rotate of a fresh login token failed: %v", err)
	}
	if newAccess == "" || newRefresh == "" {
		t.Fatal("expected a full pair from rotation")
	}
}
