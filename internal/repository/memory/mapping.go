package memory

import (
	"context"
	"time"

	"retail-bank-core/internal/domain"
)

type mappingRepository struct {
	s *Store
}

func (r *mappingRepository) FindByHash(ctx context.Context, hash string) (*domain.AnonymizedMapping, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mappings[hash]
	if !ok {
		return nil, domain.ErrMappingNotFound
	}
	return &m, nil
}

func (r *mappingRepository) FindByToken(ctx context.Context, token string) (*domain.AnonymizedMapping, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	hash, ok := r.s.tokens[token]
	if !ok {
		return nil, domain.ErrMappingNotFound
	}
	m := r.s.mappings[hash]
	return &m, nil
}

// Create enforces uniqueness of both hash and token.
func (r *mappingRepository) Create(ctx context.Context, m *domain.AnonymizedMapping) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.mappings[m.ValueHash]; ok {
		return domain.ErrDuplicateMapping
	}
	if _, ok := r.s.tokens[m.Token]; ok {
		return domain.ErrDuplicateMapping
	}
	m.CreatedAt = time.Now().UTC()
	r.s.mappings[m.ValueHash] = *m
	r.s.tokens[m.Token] = m.ValueHash
	return nil
}
