package assistant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("assistant not found")

type (
	Repository interface {
		CreateAssistant(ctx context.Context, a Assistant) (Assistant, error)
		GetAssistantByID(ctx context.Context, id string) (Assistant, error)
		QueryAssistantsByInstructor(ctx context.Context, instructorID string) ([]Assistant, error)
		QueryPublishedAssistants(ctx context.Context) ([]Assistant, error)
		UpdateAssistant(ctx context.Context, a Assistant, published *bool) (Assistant, error)
		DeleteAssistantsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, instructorID string, na NewAssistant) (Assistant, error) {
	now := time.Now().UTC()
	return svc.repo.CreateAssistant(ctx, Assistant{
		ID:           uuid.NewString(),
		InstructorID: instructorID,
		Name:         na.Name,
		Description:  na.Description,
		AvatarURL:    na.AvatarURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Assistant, error) {
	return svc.repo.GetAssistantByID(ctx, id)
}

func (svc *Service) QueryByInstructor(ctx context.Context, instructorID string) ([]Assistant, error) {
	return svc.repo.QueryAssistantsByInstructor(ctx, instructorID)
}

// QueryPublished lists the assistants visible to students.
func (svc *Service) QueryPublished(ctx context.Context) ([]Assistant, error) {
	return svc.repo.QueryPublishedAssistants(ctx)
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAssistant) (Assistant, error) {
	return svc.repo.UpdateAssistant(ctx, Assistant{
		ID:          id,
		Name:        ua.Name,
		Description: ua.Description,
		AvatarURL:   ua.AvatarURL,
		UpdatedAt:   time.Now().UTC(),
	}, ua.Published)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteAssistantsByID(ctx, ids...)
}
