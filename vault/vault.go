// ABOUTME: Symmetric encryption for provider credentials at rest
// ABOUTME: Produces ivHex:tagHex:cipherHex envelopes with AES-256-GCM
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize = 32 // AES-256
	tagSize = 16
)

// hkdfInfo binds derived keys to this vault's purpose so the same configured
// secret can safely feed other derivations later.
var hkdfInfo = []byte("meetgraph credential vault v1")

// Vault encrypts and decrypts credential envelopes with a key derived from
// process-wide configuration. It performs no I/O.
type Vault struct {
	key []byte
}

// New derives the vault key from the configured secret via HKDF-SHA256.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("vault secret is required")
	}

	key := make([]byte, keySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive vault key: %w", err)
	}

	return &Vault{key: key}, nil
}

// Encrypt seals a secret into an ivHex:tagHex:cipherHex envelope.
func (v *Vault) Encrypt(secret string) (string, error) {
	aead, err := v.aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := aead.Seal(nil, iv, []byte(secret), nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext)), nil
}

// Decrypt opens an envelope produced by Encrypt. It never fails loudly:
// malformed or tampered input returns ok=false, which callers must treat the
// same as having no stored credential at all.
func (v *Vault) Decrypt(envelope string) (string, bool) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return "", false
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", false
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", false
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", false
	}

	aead, err := v.aead()
	if err != nil {
		return "", false
	}
	if len(iv) != aead.NonceSize() || len(tag) != tagSize {
		return "", false
	}

	plaintext, err := aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", false
	}

	return string(plaintext), true
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
