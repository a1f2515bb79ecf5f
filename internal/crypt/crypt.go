// Package crypt provides at-rest encryption for the persisted account store.
//
// The actual cipher is AES-256-GCM; what varies per platform is key custody.
// On macOS the key lives in the Keychain as a generic password:
//   - Service: "com.lanterne"
//   - Account: "store-encryption-key"
//   - Label: "lanterne: store encryption key" (for Keychain Access.app visibility)
//
// The key is scoped kSecAttrAccessibleWhenUnlockedThisDeviceOnly: never
// synced to iCloud, never available when the machine is locked. On platforms
// without a keystore the capability reports unavailable and the store is
// persisted in plaintext.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// Algorithm names the cipher written into the on-disk envelope.
const Algorithm = "aes-256-gcm"

const keySize = 32

// ErrUnavailable is returned when encryption is requested but no key
// custody backend exists on this platform.
var ErrUnavailable = errors.New("encryption unavailable")

// Cipher is the platform encryption capability consumed by the storage layer.
type Cipher interface {
	// Available reports whether Encrypt and Decrypt can be used.
	Available() bool
	// Algorithm identifies the cipher for the on-disk envelope.
	Algorithm() string
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Disabled is a Cipher that reports unavailable. Used on platforms
// without a keystore.
type Disabled struct{}

func (Disabled) Available() bool   { return false }
func (Disabled) Algorithm() string { return Algorithm }

func (Disabled) Encrypt([]byte) ([]byte, error) { return nil, ErrUnavailable }
func (Disabled) Decrypt([]byte) ([]byte, error) { return nil, ErrUnavailable }

// seal encrypts plaintext with AES-256-GCM. The nonce is prepended to the
// returned blob.
func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a blob produced by seal.
func open(key, blob []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce")
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting store: %w", err)
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func newKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating encryption key: %w", err)
	}
	return key, nil
}
