package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/argon2"

	"retail-bank-core/internal/domain"
)

const (
	minSaltLength = 16

	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
)

// ValueHasher produces a deterministic salted one-way hash.
type ValueHasher struct {
	salt []byte
}

func NewValueHasher(salt string) (*ValueHasher, error) {
	if len(salt) < minSaltLength {
		return nil, fmt.Errorf("%w: pseudonym salt must be at least %d bytes", domain.ErrConfiguration, minSaltLength)
	}
	return &ValueHasher{salt: []byte(salt)}, nil
}

// Hash returns hex(argon2id(value, salt)).
func (h *ValueHasher) Hash(value string) string {
	return hex.EncodeToString(argon2.IDKey([]byte(value), h.salt, argonTime, argonMemory, argonThreads, argonKeyLen))
}

// RandomToken returns n characters drawn uniformly from Base62Alphabet.
func RandomToken(n int) (string, error) {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(Base62Alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}
		out[i] = Base62Alphabet[idx.Int64()]
	}
	return string(out), nil
}
