package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/logger"
	"retail-bank-core/internal/repository"
)

const uniqueViolation = "23505"

type mappingRepository struct {
	db dbtx
}

func NewMappingRepository(db dbtx) repository.MappingRepository {
	return &mappingRepository{db: db}
}

func (r *mappingRepository) FindByHash(ctx context.Context, hash string) (*domain.AnonymizedMapping, error) {
	query := `SELECT id, value_hash, token, encrypted_original, created_at FROM anonymized_mappings WHERE value_hash = $1`
	return scanMapping(r.db.QueryRowContext(ctx, query, hash))
}

func (r *mappingRepository) FindByToken(ctx context.Context, token string) (*domain.AnonymizedMapping, error) {
	query := `SELECT id, value_hash, token, encrypted_original, created_at FROM anonymized_mappings WHERE token = $1`
	return scanMapping(r.db.QueryRowContext(ctx, query, token))
}

func (r *mappingRepository) Create(ctx context.Context, m *domain.AnonymizedMapping) error {
	logger.EnterMethod("mappingRepository.Create", "mappingID", m.ID)

	m.CreatedAt = time.Now().UTC()
	query := `INSERT INTO anonymized_mappings (id, value_hash, token, encrypted_original, created_at)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.ValueHash, m.Token, m.EncryptedOriginal, m.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			logger.Debug("Pseudonym mapping conflict", "constraint", pqErr.Constraint)
			return domain.ErrDuplicateMapping
		}
		logger.ExitMethodWithError("mappingRepository.Create", err, "mappingID", m.ID)
		return err
	}

	logger.ExitMethod("mappingRepository.Create", "mappingID", m.ID)
	return nil
}

func scanMapping(row rowScanner) (*domain.AnonymizedMapping, error) {
	var m domain.AnonymizedMapping
	err := row.Scan(&m.ID, &m.ValueHash, &m.Token, &m.EncryptedOriginal, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMappingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
