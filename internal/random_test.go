package internal

import "testing"

func TestNewTokenIDUnique(t *testing.T) {
	a, err := NewTokenID()
	if err != nil {
		t.Fatalf("NewTokenID failed: %v", err)
	}
	b, err := NewTokenID()
	if err != nil {
		t.Fatalf("NewTokenID failed: %v", err)
	}
	if a == "" || a == b {
		t.Fatalf("expected distinct ids, got %q and %q", a, b)
	}
}

func TestFingerprintToken(t *testing.T) {
	pepper := []byte("fingerprint-pepper")

	a := FingerprintToken("token-1", pepper)
	if a != FingerprintToken("token-1", pepper) {
		t.Fatal("fingerprint must be deterministic")
	}
	if a == FingerprintToken("token-2", pepper) {
		t.Fatal("different tokens must not collide")
	}
	if a == FingerprintToken("token-1", []byte("other")) {
		t.Fatal("fingerprint must depend on the pepper")
	}
}
