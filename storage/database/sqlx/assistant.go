package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/assistant"
)

type assistantRepository struct {
	db *sqlx.DB
}

var _ assistant.Repository = (*assistantRepository)(nil) // interface compliance check

func NewAssistantRepository(db *sqlx.DB) *assistantRepository {
	return &assistantRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to assistant.ErrNotFound
func (repo assistantRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return assistant.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo assistantRepository) CreateAssistant(ctx context.Context, a assistant.Assistant) (assistant.Assistant, error) {
	const q = `
		INSERT INTO assistant (id, instructor_id, name, description, avatar_url, published, created_at, updated_at)
		VALUES (:id, :instructor_id, :name, :description, :avatar_url, :published, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, a); err != nil {
		return assistant.Assistant{}, errors.Wrap(err, "inserting assistant")
	}
	return a, nil
}

func (repo assistantRepository) GetAssistantByID(ctx context.Context, id string) (assistant.Assistant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assistant.Assistant{}, assistant.ErrNotFound
	}
	var a assistant.Assistant
	const q = `SELECT * FROM assistant WHERE id = $1`
	if err := repo.db.GetContext(ctx, &a, q, id); err != nil {
		return assistant.Assistant{}, repo.trapNoRowsErr(err, "finding assistant by ID")
	}
	return a, nil
}

func (repo assistantRepository) QueryAssistantsByInstructor(ctx context.Context, instructorID string) ([]assistant.Assistant, error) {
	assistants := []assistant.Assistant{}
	const q = `SELECT * FROM assistant WHERE instructor_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &assistants, q, instructorID); err != nil {
		return nil, errors.Wrap(err, "querying assistants by instructor")
	}
	return assistants, nil
}

func (repo assistantRepository) QueryPublishedAssistants(ctx context.Context) ([]assistant.Assistant, error) {
	assistants := []assistant.Assistant{}
	const q = `SELECT * FROM assistant WHERE published ORDER BY name`
	if err := repo.db.SelectContext(ctx, &assistants, q); err != nil {
		return nil, errors.Wrap(err, "querying published assistants")
	}
	return assistants, nil
}

func (repo assistantRepository) UpdateAssistant(ctx context.Context, a assistant.Assistant, published *bool) (assistant.Assistant, error) {
	if published != nil {
		a.Published = *published
	}
	const q = `
		UPDATE assistant
		SET name = :name, description = :description, avatar_url = :avatar_url,
		    published = :published, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, a)
	if err != nil {
		return assistant.Assistant{}, errors.Wrap(err, "updating assistant")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assistant.Assistant{}, assistant.ErrNotFound
	}
	return a, nil
}

func (repo assistantRepository) DeleteAssistantsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM assistant WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building assistant delete")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting assistants")
	}
	return nil
}
