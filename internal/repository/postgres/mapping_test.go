package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-bank-core/internal/domain"
)

func TestMappingRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewMappingRepository(db)
	ctx := context.Background()
	m := &domain.AnonymizedMapping{ID: uuid.New(), ValueHash: "abc", Token: "ANON-12345678", EncryptedOriginal: "sealed"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO anonymized_mappings").
			WithArgs(m.ID, "abc", "ANON-12345678", "sealed", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Create(ctx, m))
	})

	t.Run("Unique violation", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO anonymized_mappings").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "anonymized_mappings_value_hash_key"})

		assert.ErrorIs(t, repo.Create(ctx, m), domain.ErrDuplicateMapping)
	})

	t.Run("Other failure", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO anonymized_mappings").
			WillReturnError(errors.New("connection reset"))

		err := repo.Create(ctx, m)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrDuplicateMapping)
	})
}

func TestMappingRepository_Find(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewMappingRepository(db)
	ctx := context.Background()
	columns := []string{"id", "value_hash", "token", "encrypted_original", "created_at"}
	id := uuid.New()

	t.Run("By hash", func(t *testing.T) {
		mock.ExpectQuery("FROM anonymized_mappings WHERE value_hash").
			WithArgs("abc").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), "abc", "ANON-12345678", "sealed", fixedTime))

		m, err := repo.FindByHash(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "ANON-12345678", m.Token)
	})

	t.Run("By token missing", func(t *testing.T) {
		mock.ExpectQuery("FROM anonymized_mappings WHERE token").
			WithArgs("ANON-00000000").
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.FindByToken(ctx, "ANON-00000000")
		assert.ErrorIs(t, err, domain.ErrMappingNotFound)
	})
}
