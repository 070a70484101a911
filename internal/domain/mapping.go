package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnonymizedMapping ties a salted hash of a sensitive value to its pseudonym token.
// The original can only be recovered by decrypting EncryptedOriginal.
type AnonymizedMapping struct {
	ID                uuid.UUID `json:"id"`
	ValueHash         string    `json:"value_hash"`
	Token             string    `json:"token"`
	EncryptedOriginal string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}
