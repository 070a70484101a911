package security

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-bank-core/internal/domain"
)

const (
	testFieldKey  = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
	otherFieldKey = "ZmVkY2JhOTg3NjU0MzIxMGZlZGNiYTk4NzY1NDMyMTA="
)

func TestNewFieldEncryptor_Configuration(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"Missing key", ""},
		{"Not base64", "not-base64!!"},
		{"Wrong length", "c2hvcnQ="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewFieldEncryptor(tt.key)
			assert.Nil(t, enc)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestFieldEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewFieldEncryptor(testFieldKey)
	require.NoError(t, err)

	for _, plaintext := range []string{"", "Jane Doe", "AB 1234567", "Привет, мир", "Rent for March"} {
		envelope, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, envelope)

		decrypted, err := enc.Decrypt(envelope)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestFieldEncryptor_FreshNonce(t *testing.T) {
	enc, err := NewFieldEncryptor(testFieldKey)
	require.NoError(t, err)

	first, err := enc.Encrypt("same value")
	require.NoError(t, err)
	second, err := enc.Encrypt("same value")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestFieldEncryptor_DecryptFailures(t *testing.T) {
	enc, err := NewFieldEncryptor(testFieldKey)
	require.NoError(t, err)
	other, err := NewFieldEncryptor(otherFieldKey)
	require.NoError(t, err)

	envelope, err := enc.Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(envelope)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	t.Run("Malformed", func(t *testing.T) {
		_, err := enc.Decrypt("%%%")
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	})

	t.Run("Too short", func(t *testing.T) {
		_, err := enc.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	})

	t.Run("Tampered", func(t *testing.T) {
		_, err := enc.Decrypt(tampered)
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	})

	t.Run("Wrong key", func(t *testing.T) {
		_, err := other.Decrypt(envelope)
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	})
}

func TestFieldEncryptor_Nullable(t *testing.T) {
	enc, err := NewFieldEncryptor(testFieldKey)
	require.NoError(t, err)

	out, err := enc.EncryptNullable(nil)
	assert.NoError(t, err)
	assert.Nil(t, out)

	out, err = enc.DecryptNullable(nil)
	assert.NoError(t, err)
	assert.Nil(t, out)

	value := "AB1234567"
	sealed, err := enc.EncryptNullable(&value)
	require.NoError(t, err)
	require.NotNil(t, sealed)

	opened, err := enc.DecryptNullable(sealed)
	require.NoError(t, err)
	assert.Equal(t, value, *opened)
}
