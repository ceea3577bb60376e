package credit

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Ledger entry kinds.
const (
	KindGrant    = "grant"    // promotional or administrative credit
	KindPurchase = "purchase" // credit bought (capture happens elsewhere)
	KindSpend    = "spend"    // credit consumed by assistant usage
)

// Entry is one immutable ledger line; a student's balance is the sum of
// their deltas.
type Entry struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	Kind      string    `json:"kind" db:"kind"`
	Delta     int       `json:"delta" db:"delta"`
	Note      string    `json:"note,omitempty" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// Balance is the response shape for a balance query.
type Balance struct {
	StudentID string `json:"student_id"`
	Credits   int    `json:"credits"`
}

// TopUp contains information needed to record purchased credit; the
// payment itself is captured by the payment provider before this is
// called.
type TopUp struct {
	Credits   int    `json:"credits" validate:"required,min=1"`
	Reference string `json:"reference" validate:"required"`
}

func (tu *TopUp) Validate(validate *validator.Validate) error {
	tu.Reference = core.CleanString(tu.Reference)
	return validate.Struct(tu)
}
