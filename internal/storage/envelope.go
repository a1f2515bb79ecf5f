package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lanterne-launcher/lanterne/internal/account"
	"github.com/lanterne-launcher/lanterne/internal/crypt"
)

// envelopeVersion is the version of the outer on-disk wrapper, independent
// of the store schema version inside it.
const envelopeVersion = 1

// ErrEncryptionUnavailable is returned when the on-disk payload is
// encrypted but no decryption capability exists on this platform.
var ErrEncryptionUnavailable = errors.New("store is encrypted but decryption is unavailable")

type envelope struct {
	FormatVersion int             `json:"format_version"`
	Encrypted     bool            `json:"encrypted"`
	Algorithm     string          `json:"algorithm,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// Wrap serializes the store into the on-disk envelope, encrypting the
// payload when the cipher is available.
func Wrap(store *account.Store, cipher crypt.Cipher) ([]byte, error) {
	payload, err := json.Marshal(store)
	if err != nil {
		return nil, fmt.Errorf("encoding account store: %w", err)
	}

	env := envelope{FormatVersion: envelopeVersion}
	if cipher != nil && cipher.Available() {
		sealed, err := cipher.Encrypt(payload)
		if err != nil {
			return nil, fmt.Errorf("encrypting account store: %w", err)
		}
		encoded, err := json.Marshal(base64.StdEncoding.EncodeToString(sealed))
		if err != nil {
			return nil, err
		}
		env.Encrypted = true
		env.Algorithm = cipher.Algorithm()
		env.Data = encoded
	} else {
		env.Data = payload
	}

	return json.Marshal(env)
}

// Unwrap parses the envelope and returns the inner store payload. Files
// written before the envelope existed carry the store directly; those are
// returned unchanged. Malformed bytes, an undecodable ciphertext, and an
// encrypted payload with no cipher are all treated by the caller as a
// corrupt store.
func Unwrap(data []byte, cipher crypt.Cipher) (json.RawMessage, error) {
	if !json.Valid(data) {
		return nil, errors.New("malformed store payload")
	}

	var probe struct {
		Encrypted *bool           `json:"encrypted"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.Encrypted == nil {
		// Pre-envelope file: the payload is the store itself.
		return data, nil
	}

	if !*probe.Encrypted {
		if len(probe.Data) == 0 {
			return data, nil
		}
		return probe.Data, nil
	}

	var encoded string
	if err := json.Unmarshal(probe.Data, &encoded); err != nil {
		return nil, fmt.Errorf("encrypted envelope without ciphertext: %w", err)
	}
	if cipher == nil || !cipher.Available() {
		return nil, ErrEncryptionUnavailable
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	plain, err := cipher.Decrypt(sealed)
	if err != nil {
		return nil, err
	}
	if !json.Valid(plain) {
		return nil, errors.New("decrypted payload is not valid JSON")
	}
	return plain, nil
}
