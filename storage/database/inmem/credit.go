package inmemdb

import (
	"context"

	"github.com/darasahq/darasa/core/credit"
)

type creditRepository struct {
	db *DB
}

var _ credit.Repository = (*creditRepository)(nil) // interface compliance check

func NewCreditRepository(db *DB) *creditRepository {
	return &creditRepository{db: db}
}

func (repo *creditRepository) CreateEntry(ctx context.Context, e credit.Entry) (credit.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.creditEntries = append(repo.db.creditEntries, e)
	return e, nil
}

func (repo *creditRepository) SumDeltasByStudent(ctx context.Context, studentID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var sum int
	for _, e := range repo.db.creditEntries {
		if e.StudentID == studentID {
			sum += e.Delta
		}
	}
	return sum, nil
}

func (repo *creditRepository) QueryEntriesByStudent(ctx context.Context, studentID string) ([]credit.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]credit.Entry, 0)
	for _, e := range repo.db.creditEntries {
		if e.StudentID == studentID {
			entries = append(entries, e)
		}
	}
	// newest first, matching the sql store
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
