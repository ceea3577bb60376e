package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/credit"
)

type creditRepository struct {
	db *sqlx.DB
}

var _ credit.Repository = (*creditRepository)(nil) // interface compliance check

func NewCreditRepository(db *sqlx.DB) *creditRepository {
	return &creditRepository{db: db}
}

func (repo creditRepository) CreateEntry(ctx context.Context, e credit.Entry) (credit.Entry, error) {
	const q = `
		INSERT INTO credit_entry (id, student_id, kind, delta, note, created_at)
		VALUES (:id, :student_id, :kind, :delta, :note, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, e); err != nil {
		return credit.Entry{}, errors.Wrap(err, "inserting credit entry")
	}
	return e, nil
}

func (repo creditRepository) SumDeltasByStudent(ctx context.Context, studentID string) (int, error) {
	var sum int
	const q = `SELECT COALESCE(SUM(delta), 0) FROM credit_entry WHERE student_id = $1`
	if err := repo.db.GetContext(ctx, &sum, q, studentID); err != nil {
		return 0, errors.Wrap(err, "summing credit deltas")
	}
	return sum, nil
}

func (repo creditRepository) QueryEntriesByStudent(ctx context.Context, studentID string) ([]credit.Entry, error) {
	entries := []credit.Entry{}
	const q = `SELECT * FROM credit_entry WHERE student_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &entries, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying credit entries")
	}
	return entries, nil
}
