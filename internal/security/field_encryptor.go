package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"retail-bank-core/internal/domain"
)

const fieldKeySize = 32

// FieldEncryptor performs authenticated encryption of individual string fields.
type FieldEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(envelope string) (string, error)
	// Nullable variants pass nil through unchanged.
	EncryptNullable(plaintext *string) (*string, error)
	DecryptNullable(envelope *string) (*string, error)
}

type aesGCMEncryptor struct {
	aead cipher.AEAD
}

// NewFieldEncryptor builds an AES-256-GCM encryptor from a base64 encoded 32 byte key.
func NewFieldEncryptor(encodedKey string) (FieldEncryptor, error) {
	if encodedKey == "" {
		return nil, fmt.Errorf("%w: field encryption key is required", domain.ErrConfiguration)
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: field encryption key is not valid base64", domain.ErrConfiguration)
	}
	if len(key) != fieldKeySize {
		return nil, fmt.Errorf("%w: field encryption key must be %d bytes, got %d", domain.ErrConfiguration, fieldKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return &aesGCMEncryptor{aead: aead}, nil
}

// Encrypt returns base64(nonce || ciphertext || tag) with a fresh nonce per call.
func (e *aesGCMEncryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *aesGCMEncryptor) Decrypt(envelope string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: malformed envelope", domain.ErrDecryptionFailed)
	}
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize+e.aead.Overhead() {
		return "", fmt.Errorf("%w: envelope too short", domain.ErrDecryptionFailed)
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", domain.ErrDecryptionFailed)
	}
	return string(plaintext), nil
}

func (e *aesGCMEncryptor) EncryptNullable(plaintext *string) (*string, error) {
	if plaintext == nil {
		return nil, nil
	}
	out, err := e.Encrypt(*plaintext)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *aesGCMEncryptor) DecryptNullable(envelope *string) (*string, error) {
	if envelope == nil {
		return nil, nil
	}
	out, err := e.Decrypt(*envelope)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
