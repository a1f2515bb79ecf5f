package crypt

// MemoryCipher holds its key in process memory. It exists for tests and
// offers no persistence: a new instance cannot decrypt another's output.
type MemoryCipher struct {
	key []byte
}

// NewMemoryCipher creates a cipher with a fresh random key.
func NewMemoryCipher() *MemoryCipher {
	key, err := newKey()
	if err != nil {
		// crypto/rand failing is unrecoverable in any context.
		panic(err)
	}
	return &MemoryCipher{key: key}
}

func (c *MemoryCipher) Available() bool   { return true }
func (c *MemoryCipher) Algorithm() string { return Algorithm }

func (c *MemoryCipher) Encrypt(plaintext []byte) ([]byte, error) {
	return seal(c.key, plaintext)
}

func (c *MemoryCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	return open(c.key, ciphertext)
}
