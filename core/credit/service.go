package credit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrInsufficientCredits = errors.New("insufficient credits")

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry) (Entry, error)
		SumDeltasByStudent(ctx context.Context, studentID string) (int, error)
		QueryEntriesByStudent(ctx context.Context, studentID string) ([]Entry, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Balance(ctx context.Context, studentID string) (Balance, error) {
	credits, err := svc.repo.SumDeltasByStudent(ctx, studentID)
	if err != nil {
		return Balance{}, errors.Wrap(err, "summing ledger deltas")
	}
	return Balance{StudentID: studentID, Credits: credits}, nil
}

func (svc *Service) Ledger(ctx context.Context, studentID string) ([]Entry, error) {
	return svc.repo.QueryEntriesByStudent(ctx, studentID)
}

// Grant records administrative or promotional credit.
func (svc *Service) Grant(ctx context.Context, studentID string, credits int, note string) (Entry, error) {
	return svc.append(ctx, studentID, KindGrant, credits, note)
}

// RecordPurchase records credit whose payment was already captured by
// the provider; Reference ties the entry back to the capture.
func (svc *Service) RecordPurchase(ctx context.Context, studentID string, tu TopUp) (Entry, error) {
	return svc.append(ctx, studentID, KindPurchase, tu.Credits, tu.Reference)
}

// Spend consumes credit, refusing to take the balance negative.
func (svc *Service) Spend(ctx context.Context, studentID string, credits int, note string) (Entry, error) {
	balance, err := svc.Balance(ctx, studentID)
	if err != nil {
		return Entry{}, err
	}
	if balance.Credits < credits {
		return Entry{}, ErrInsufficientCredits
	}
	return svc.append(ctx, studentID, KindSpend, -credits, note)
}

func (svc *Service) append(ctx context.Context, studentID, kind string, delta int, note string) (Entry, error) {
	return svc.repo.CreateEntry(ctx, Entry{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Kind:      kind,
		Delta:     delta,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	})
}
