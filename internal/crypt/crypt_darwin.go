//go:build darwin

package crypt

import (
	"errors"
	"fmt"
	"sync"

	gokeychain "github.com/keybase/go-keychain"
)

const (
	// ServiceName is the Keychain service attribute for the lanterne key.
	ServiceName = "com.lanterne"

	keyAccount = "store-encryption-key"
	keyLabel   = "lanterne: store encryption key"
)

// SystemCipher encrypts with a key held in the macOS Keychain. The key is
// generated on first use and reused afterwards.
type SystemCipher struct {
	service string

	mu  sync.Mutex
	key []byte
}

// NewSystemCipher creates the Keychain-backed cipher.
func NewSystemCipher() *SystemCipher {
	return &SystemCipher{service: ServiceName}
}

// Available reports whether a key could be loaded or created.
func (c *SystemCipher) Available() bool {
	_, err := c.ensureKey()
	return err == nil
}

func (c *SystemCipher) Algorithm() string { return Algorithm }

func (c *SystemCipher) Encrypt(plaintext []byte) ([]byte, error) {
	key, err := c.ensureKey()
	if err != nil {
		return nil, err
	}
	return seal(key, plaintext)
}

func (c *SystemCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	key, err := c.ensureKey()
	if err != nil {
		return nil, err
	}
	return open(key, ciphertext)
}

// ensureKey loads the encryption key from the Keychain, generating and
// storing a fresh one if none exists yet.
func (c *SystemCipher) ensureKey() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != nil {
		return c.key, nil
	}

	data, err := gokeychain.GetGenericPassword(c.service, keyAccount, "", "")
	if err != nil && !errors.Is(err, gokeychain.ErrorItemNotFound) {
		return nil, fmt.Errorf("%w: keychain get: %v", ErrUnavailable, err)
	}
	if len(data) == keySize {
		c.key = data
		return c.key, nil
	}

	key, err := newKey()
	if err != nil {
		return nil, err
	}

	item := gokeychain.NewGenericPassword(c.service, keyAccount, keyLabel, key, "")
	item.SetSynchronizable(gokeychain.SynchronizableNo)
	item.SetAccessible(gokeychain.AccessibleWhenUnlockedThisDeviceOnly)

	// A short or corrupt item from an earlier run is replaced.
	_ = gokeychain.DeleteGenericPasswordItem(c.service, keyAccount)
	if err := gokeychain.AddItem(item); err != nil {
		return nil, fmt.Errorf("%w: keychain add: %v", ErrUnavailable, err)
	}

	c.key = key
	return c.key, nil
}
