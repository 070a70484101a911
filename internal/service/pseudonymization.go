package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"retail-bank-core/internal/cache"
	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/logger"
	"retail-bank-core/internal/repository"
	"retail-bank-core/internal/security"
)

const (
	UnknownPseudonym         = "UNKNOWN"
	DecryptionErrorPseudonym = "DECRYPTION_ERROR"

	tokenSuffixLength = 8
	maxTokenAttempts  = 5
)

type pseudonymizationService struct {
	mappings repository.MappingRepository
	enc      security.FieldEncryptor
	hasher   *security.ValueHasher
	cache    cache.TokenCache
	prefix   string
}

// NewPseudonymizationService wires the mapping store. tokenCache may be nil.
func NewPseudonymizationService(
	mappings repository.MappingRepository,
	enc security.FieldEncryptor,
	hasher *security.ValueHasher,
	tokenCache cache.TokenCache,
	prefix string,
) PseudonymizationService {
	if tokenCache == nil {
		tokenCache = cache.NewNopTokenCache()
	}
	return &pseudonymizationService{
		mappings: mappings,
		enc:      enc,
		hasher:   hasher,
		cache:    tokenCache,
		prefix:   prefix,
	}
}

func (s *pseudonymizationService) Anonymize(ctx context.Context, original string) (string, error) {
	hash := s.hasher.Hash(original)

	if token, found, err := s.cache.GetToken(ctx, hash); err != nil {
		logger.Warn("Token cache unavailable, falling back to store", "error", err)
	} else if found {
		return token, nil
	}

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		existing, err := s.mappings.FindByHash(ctx, hash)
		if err == nil {
			s.remember(ctx, hash, existing.Token)
			return existing.Token, nil
		}
		if !errors.Is(err, domain.ErrMappingNotFound) {
			return "", fmt.Errorf("failed to look up pseudonym: %w", err)
		}

		suffix, err := security.RandomToken(tokenSuffixLength)
		if err != nil {
			return "", err
		}
		encrypted, err := s.enc.Encrypt(original)
		if err != nil {
			return "", err
		}

		mapping := &domain.AnonymizedMapping{
			ID:                uuid.New(),
			ValueHash:         hash,
			Token:             s.prefix + "-" + suffix,
			EncryptedOriginal: encrypted,
			CreatedAt:         time.Now().UTC(),
		}
		err = s.mappings.Create(ctx, mapping)
		if err == nil {
			s.remember(ctx, hash, mapping.Token)
			return mapping.Token, nil
		}
		if !errors.Is(err, domain.ErrDuplicateMapping) {
			return "", fmt.Errorf("failed to store pseudonym: %w", err)
		}
		// Either a concurrent caller stored this hash first or the token collided.
		logger.Debug("Pseudonym insert conflict, retrying", "attempt", attempt)
	}

	return "", fmt.Errorf("%w: no free token after %d attempts", domain.ErrDuplicateMapping, maxTokenAttempts)
}

func (s *pseudonymizationService) remember(ctx context.Context, hash, token string) {
	if err := s.cache.SetToken(ctx, hash, token); err != nil {
		logger.Warn("Failed to cache pseudonym token", "error", err)
	}
}

func (s *pseudonymizationService) Deanonymize(ctx context.Context, token string) (string, error) {
	original, err := s.Reveal(ctx, token)
	switch {
	case err == nil:
		return original, nil
	case errors.Is(err, domain.ErrMappingNotFound):
		return UnknownPseudonym, nil
	case errors.Is(err, domain.ErrDecryptionFailed):
		logger.Warn("Stored pseudonym mapping could not be decrypted", "token", token)
		return DecryptionErrorPseudonym, nil
	default:
		return "", err
	}
}

func (s *pseudonymizationService) Reveal(ctx context.Context, token string) (string, error) {
	mapping, err := s.mappings.FindByToken(ctx, token)
	if err != nil {
		return "", err
	}
	return s.enc.Decrypt(mapping.EncryptedOriginal)
}
