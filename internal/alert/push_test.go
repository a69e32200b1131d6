package alert

import (
	"crypto/elliptic"
	"encoding/base64"
	"testing"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("GenerateVAPIDKeys: %v", err)
	}
	if pub == "" || priv == "" {
		t.Fatal("expected non-empty key pair")
	}

	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 || pubBytes[0] != 4 {
		t.Errorf("public key = %d bytes with prefix %#x, want 65-byte uncompressed point", len(pubBytes), pubBytes[0])
	}
	x, y := elliptic.Unmarshal(elliptic.P256(), pubBytes)
	if x == nil {
		t.Error("public key is not a valid P-256 point")
	}
	_ = y

	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) == 0 || len(privBytes) > 32 {
		t.Errorf("private key = %d bytes, want 1..32", len(privBytes))
	}
}

func TestGenerateVAPIDKeysUnique(t *testing.T) {
	pub1, priv1, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("GenerateVAPIDKeys: %v", err)
	}
	pub2, priv2, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("GenerateVAPIDKeys: %v", err)
	}
	if pub1 == pub2 || priv1 == priv2 {
		t.Error("expected distinct key pairs across calls")
	}
}
