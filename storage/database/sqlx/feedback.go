package sqlxrepos

import (
	"context"
	"database/sql"
	"net/mail"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/feedback"
)

type feedbackRepository struct {
	db *sqlx.DB
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *sqlx.DB) *feedbackRepository {
	return &feedbackRepository{db: db}
}

func (repo feedbackRepository) CreateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	const q = `
		INSERT INTO feedback (id, student_id, assistant_id, rating, comment, created_at)
		VALUES (:id, :student_id, :assistant_id, :rating, :comment, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, fb); err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return fb, nil
}

func (repo feedbackRepository) QueryFeedbackByAssistant(ctx context.Context, assistantID string) ([]feedback.Feedback, error) {
	fbs := []feedback.Feedback{}
	const q = `SELECT * FROM feedback WHERE assistant_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &fbs, q, assistantID); err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	return fbs, nil
}

func (repo feedbackRepository) GetAssistantOwnerEmail(ctx context.Context, assistantID string) (mail.Address, error) {
	var row struct {
		Name  string `db:"name"`
		Email string `db:"email"`
	}
	const q = `
		SELECT u.name, u.email
		FROM app_user u JOIN assistant a ON a.instructor_id = u.id
		WHERE a.id = $1`
	if err := repo.db.GetContext(ctx, &row, q, assistantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mail.Address{}, errors.Errorf("no owner for assistant %s", assistantID)
		}
		return mail.Address{}, errors.Wrap(err, "finding assistant owner")
	}
	return mail.Address{Name: row.Name, Address: row.Email}, nil
}
