package security

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"retail-bank-core/internal/domain"
)

const (
	// Base62Alphabet is shared by account numbers and pseudonym tokens. Index 0 is the
	// padding character.
	Base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	minAccountNumberWidth = 6
)

var (
	base62Radix = big.NewInt(62)
	uuidLimit   = new(big.Int).Lsh(big.NewInt(1), 128)
)

// EncodeAccountNumber renders id as a base62 account number, left-padded to at least
// six characters. Longer values are never truncated.
func EncodeAccountNumber(id uuid.UUID) string {
	n := new(big.Int).SetBytes(id[:])
	mod := new(big.Int)

	digits := make([]byte, 0, 22)
	for n.Sign() > 0 {
		n.DivMod(n, base62Radix, mod)
		digits = append(digits, Base62Alphabet[mod.Int64()])
	}
	for len(digits) < minAccountNumberWidth {
		digits = append(digits, Base62Alphabet[0])
	}

	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// DecodeAccountNumber is the inverse of EncodeAccountNumber.
func DecodeAccountNumber(number string) (uuid.UUID, error) {
	if number == "" {
		return uuid.Nil, fmt.Errorf("%w: empty", domain.ErrInvalidAccountNumber)
	}

	n := new(big.Int)
	digit := new(big.Int)
	for i := 0; i < len(number); i++ {
		idx := strings.IndexByte(Base62Alphabet, number[i])
		if idx < 0 {
			return uuid.Nil, fmt.Errorf("%w: unexpected character %q", domain.ErrInvalidAccountNumber, number[i])
		}
		n.Mul(n, base62Radix)
		n.Add(n, digit.SetInt64(int64(idx)))
	}
	if n.Cmp(uuidLimit) >= 0 {
		return uuid.Nil, fmt.Errorf("%w: value exceeds 128 bits", domain.ErrInvalidAccountNumber)
	}

	var id uuid.UUID
	n.FillBytes(id[:])
	return id, nil
}
