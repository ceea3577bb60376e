package feedback

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

var ErrNotFound = errors.New("feedback not found")

type (
	Repository interface {
		CreateFeedback(ctx context.Context, fb Feedback) (Feedback, error)
		QueryFeedbackByAssistant(ctx context.Context, assistantID string) ([]Feedback, error)
		// GetAssistantOwnerEmail resolves the instructor notification
		// address for an assistant.
		GetAssistantOwnerEmail(ctx context.Context, assistantID string) (mail.Address, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, logger: logger}
}

// Create records the feedback and notifies the assistant's instructor.
// Notification failures never fail the submission.
func (svc *Service) Create(ctx context.Context, studentID string, nf NewFeedback) (Feedback, error) {
	fb := Feedback{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Rating:    nf.Rating,
		Comment:   nf.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if nf.AssistantID != "" {
		fb.AssistantID = null.StringFrom(nf.AssistantID)
	}

	fb, err := svc.repo.CreateFeedback(ctx, fb)
	if err != nil {
		return Feedback{}, errors.Wrap(err, "creating feedback")
	}

	if fb.AssistantID.Valid {
		svc.notifyInstructor(ctx, fb)
	}
	return fb, nil
}

func (svc *Service) QueryByAssistant(ctx context.Context, assistantID string) ([]Feedback, error) {
	return svc.repo.QueryFeedbackByAssistant(ctx, assistantID)
}

func (svc *Service) notifyInstructor(ctx context.Context, fb Feedback) {
	to, err := svc.repo.GetAssistantOwnerEmail(ctx, fb.AssistantID.String)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("resolving instructor email: %v", err), err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{to},
		Subject: "New feedback on your assistant",
		BodyStr: fmt.Sprintf("A student rated your assistant %d/5.\n\n%s", fb.Rating, fb.Comment),
	})
}
