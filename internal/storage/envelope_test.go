package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/lanterne-launcher/lanterne/internal/account"
	"github.com/lanterne-launcher/lanterne/internal/crypt"
)

func testStore(t *testing.T) *account.Store {
	t.Helper()
	store := account.NewStore()
	acct, err := account.Normalize(&account.Raw{
		UUID:         "a",
		Username:     "Steve",
		AccessToken:  "super-secret-token",
		RefreshToken: "r",
		ExpiresAt:    float64(10),
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	store.Upsert(acct, true)
	return store
}

func TestWrapPlaintextWithoutCipher(t *testing.T) {
	store := testStore(t)

	data, err := Wrap(store, crypt.Disabled{})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	var env struct {
		FormatVersion int             `json:"format_version"`
		Encrypted     bool            `json:"encrypted"`
		Algorithm     string          `json:"algorithm"`
		Data          json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	if env.FormatVersion != 1 || env.Encrypted {
		t.Errorf("envelope = %+v", env)
	}
	if env.Algorithm != "" {
		t.Errorf("plaintext envelope should omit algorithm, got %q", env.Algorithm)
	}
	if !bytes.Contains(env.Data, []byte(`"uuid":"a"`)) {
		t.Errorf("inline store missing account: %s", env.Data)
	}
}

func TestWrapEncryptsWithCipher(t *testing.T) {
	store := testStore(t)
	cipher := crypt.NewMemoryCipher()

	data, err := Wrap(store, cipher)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if bytes.Contains(data, []byte("super-secret-token")) {
		t.Error("encrypted payload leaks token material")
	}

	var env struct {
		Encrypted bool   `json:"encrypted"`
		Algorithm string `json:"algorithm"`
		Data      string `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	if !env.Encrypted || env.Algorithm != "aes-256-gcm" {
		t.Errorf("envelope = %+v", env)
	}

	inner, err := Unwrap(data, cipher)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Contains(inner, []byte(`"uuid":"a"`)) {
		t.Errorf("round trip lost the account: %s", inner)
	}
}

func TestUnwrapPlaintextEnvelope(t *testing.T) {
	data, err := Wrap(testStore(t), crypt.Disabled{})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	inner, err := Unwrap(data, crypt.Disabled{})
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Contains(inner, []byte(`"version":2`)) {
		t.Errorf("inner payload = %s", inner)
	}
}

func TestUnwrapPreEnvelopePayload(t *testing.T) {
	// Files written before the envelope existed carry the store directly.
	bare := []byte(`{"version":2,"updated_at":1,"active_uuid":null,"accounts":[]}`)

	inner, err := Unwrap(bare, crypt.Disabled{})
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(inner, bare) {
		t.Errorf("pre-envelope payload should pass through unchanged, got %s", inner)
	}
}

func TestUnwrapEncryptedWithoutCipher(t *testing.T) {
	data, err := Wrap(testStore(t), crypt.NewMemoryCipher())
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	if _, err := Unwrap(data, crypt.Disabled{}); !errors.Is(err, ErrEncryptionUnavailable) {
		t.Errorf("expected ErrEncryptionUnavailable, got %v", err)
	}
	if _, err := Unwrap(data, nil); !errors.Is(err, ErrEncryptionUnavailable) {
		t.Errorf("nil cipher: expected ErrEncryptionUnavailable, got %v", err)
	}
}

func TestUnwrapWrongKey(t *testing.T) {
	data, err := Wrap(testStore(t), crypt.NewMemoryCipher())
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	if _, err := Unwrap(data, crypt.NewMemoryCipher()); err == nil {
		t.Error("expected error unwrapping with a different key")
	}
}

func TestUnwrapMalformed(t *testing.T) {
	cases := map[string][]byte{
		"not json":       []byte("{{{"),
		"bad ciphertext": []byte(`{"format_version":1,"encrypted":true,"data":"!!not-base64!!"}`),
		"numeric data":   []byte(`{"format_version":1,"encrypted":true,"data":7}`),
	}
	for name, data := range cases {
		if _, err := Unwrap(data, crypt.NewMemoryCipher()); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
