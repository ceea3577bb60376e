package inmemdb

import (
	"context"
	"sort"

	"github.com/darasahq/darasa/core/assistant"
)

type assistantRepository struct {
	db *DB
}

var _ assistant.Repository = (*assistantRepository)(nil) // interface compliance check

func NewAssistantRepository(db *DB) *assistantRepository {
	return &assistantRepository{db: db}
}

func (repo *assistantRepository) CreateAssistant(ctx context.Context, a assistant.Assistant) (assistant.Assistant, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.assistants[a.ID] = a
	return a, nil
}

func (repo *assistantRepository) GetAssistantByID(ctx context.Context, id string) (assistant.Assistant, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.assistants[id]; ok {
		return a, nil
	}
	return assistant.Assistant{}, assistant.ErrNotFound
}

func (repo *assistantRepository) QueryAssistantsByInstructor(ctx context.Context, instructorID string) ([]assistant.Assistant, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assistants := make([]assistant.Assistant, 0)
	for _, a := range repo.db.assistants {
		if a.InstructorID == instructorID {
			assistants = append(assistants, a)
		}
	}
	sort.Slice(assistants, func(i, j int) bool { return assistants[i].CreatedAt.After(assistants[j].CreatedAt) })
	return assistants, nil
}

func (repo *assistantRepository) QueryPublishedAssistants(ctx context.Context) ([]assistant.Assistant, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assistants := make([]assistant.Assistant, 0)
	for _, a := range repo.db.assistants {
		if a.Published {
			assistants = append(assistants, a)
		}
	}
	sort.Slice(assistants, func(i, j int) bool { return assistants[i].Name < assistants[j].Name })
	return assistants, nil
}

func (repo *assistantRepository) UpdateAssistant(ctx context.Context, a assistant.Assistant, published *bool) (assistant.Assistant, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.assistants[a.ID]
	if !ok {
		return assistant.Assistant{}, assistant.ErrNotFound
	}
	orig.Name = a.Name
	orig.Description = a.Description
	orig.AvatarURL = a.AvatarURL
	orig.UpdatedAt = a.UpdatedAt
	if published != nil {
		orig.Published = *published
	}
	repo.db.assistants[a.ID] = orig
	return orig, nil
}

func (repo *assistantRepository) DeleteAssistantsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.assistants, id)
	}
	return nil
}
