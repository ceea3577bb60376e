package inmemdb

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/feedback"
)

type feedbackRepository struct {
	db *DB
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *DB) *feedbackRepository {
	return &feedbackRepository{db: db}
}

func (repo *feedbackRepository) CreateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.feedback = append(repo.db.feedback, fb)
	return fb, nil
}

func (repo *feedbackRepository) QueryFeedbackByAssistant(ctx context.Context, assistantID string) ([]feedback.Feedback, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	fbs := make([]feedback.Feedback, 0)
	for _, fb := range repo.db.feedback {
		if fb.AssistantID.String == assistantID {
			fbs = append(fbs, fb)
		}
	}
	return fbs, nil
}

func (repo *feedbackRepository) GetAssistantOwnerEmail(ctx context.Context, assistantID string) (mail.Address, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	a, ok := repo.db.assistants[assistantID]
	if !ok {
		return mail.Address{}, errors.Errorf("no owner for assistant %s", assistantID)
	}
	u, ok := repo.db.users[a.InstructorID]
	if !ok {
		return mail.Address{}, errors.Errorf("no owner for assistant %s", assistantID)
	}
	return mail.Address{Name: u.Name, Address: u.Email}, nil
}
