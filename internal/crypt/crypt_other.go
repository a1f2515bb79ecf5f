//go:build !darwin

package crypt

// NewSystemCipher returns a Disabled cipher on non-darwin platforms.
// Without a keystore to hold the key there is nothing to encrypt with, so
// the account store is persisted in plaintext.
func NewSystemCipher() Disabled {
	return Disabled{}
}
