// Package crypto encrypts attendee contact details before they reach storage.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 100000
	keySize    = 32 // AES-256

	// Prefix marks a value as ciphertext so plaintext written before a key
	// was configured can still be read back unchanged.
	Prefix = "enc:v1:"
)

// ErrWrongKey is returned when a marked value cannot be opened with the configured key.
var ErrWrongKey = errors.New("ciphertext does not match encryption key")

// Encryptor seals string fields with AES-GCM under a passphrase-derived key.
// A nil *Encryptor passes values through unchanged.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives a key from passphrase. It returns nil, nil for an
// empty passphrase so callers can treat encryption as optional.
func NewEncryptor(passphrase string) (*Encryptor, error) {
	if passphrase == "" {
		return nil, nil
	}

	// The salt is derived from the passphrase; stored values carry no per-record salt.
	salt := sha256.Sum256([]byte(passphrase + "devent-salt"))
	key := pbkdf2.Key([]byte(passphrase), salt[:], iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// Enabled reports whether values are actually encrypted.
func (e *Encryptor) Enabled() bool {
	return e != nil && e.aead != nil
}

// Encrypt seals plaintext and returns it base64 encoded behind Prefix.
// Empty strings and already encrypted values are returned as-is.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if !e.Enabled() || plaintext == "" || IsEncrypted(plaintext) {
		return plaintext, nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Values without Prefix are
// treated as plaintext.
func (e *Encryptor) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if !e.Enabled() {
		return "", fmt.Errorf("decrypt field: %w", ErrWrongKey)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt field: %w", ErrWrongKey)
	}
	return string(plaintext), nil
}

// EncryptFields encrypts each referenced string in place.
func (e *Encryptor) EncryptFields(fields ...*string) error {
	for _, f := range fields {
		out, err := e.Encrypt(*f)
		if err != nil {
			return err
		}
		*f = out
	}
	return nil
}

// DecryptFields decrypts each referenced string in place.
func (e *Encryptor) DecryptFields(fields ...*string) error {
	for _, f := range fields {
		out, err := e.Decrypt(*f)
		if err != nil {
			return err
		}
		*f = out
	}
	return nil
}

// IsEncrypted reports whether value carries the ciphertext marker.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Prefix)
}
