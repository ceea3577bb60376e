package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/document"
)

type documentRepository struct {
	db *sqlx.DB
}

var _ document.Repository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *sqlx.DB) *documentRepository {
	return &documentRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to document.ErrNotFound
func (repo documentRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return document.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo documentRepository) CreateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	const q = `
		INSERT INTO document (id, assistant_id, kind, title, content, source_url, created_at, updated_at)
		VALUES (:id, :assistant_id, :kind, :title, :content, :source_url, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, doc); err != nil {
		return document.Document{}, errors.Wrap(err, "inserting document")
	}
	return doc, nil
}

func (repo documentRepository) GetDocumentByID(ctx context.Context, id string) (document.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return document.Document{}, document.ErrNotFound
	}
	var doc document.Document
	const q = `SELECT * FROM document WHERE id = $1`
	if err := repo.db.GetContext(ctx, &doc, q, id); err != nil {
		return document.Document{}, repo.trapNoRowsErr(err, "finding document by ID")
	}
	return doc, nil
}

func (repo documentRepository) FilterDocuments(ctx context.Context, filter document.QueryFilter, limit, offset int) ([]document.Document, int, error) {
	where := []string{"TRUE"}
	args := []interface{}{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.AssistantID != "" {
		where = append(where, "assistant_id = "+arg(filter.AssistantID))
	}
	if filter.Kind != "" {
		where = append(where, "kind = "+arg(filter.Kind))
	}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, fmt.Sprintf("(title ILIKE %s OR content ILIKE %s)", arg(val), arg(val)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM document WHERE "+cond, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting documents")
	}

	docs := []document.Document{}
	q := fmt.Sprintf(
		"SELECT * FROM document WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s",
		cond, arg(limit), arg(offset))
	if err := repo.db.SelectContext(ctx, &docs, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying documents")
	}
	return docs, total, nil
}

func (repo documentRepository) UpdateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	const q = `
		UPDATE document
		SET title = :title, content = :content, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, doc)
	if err != nil {
		return document.Document{}, errors.Wrap(err, "updating document")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return document.Document{}, document.ErrNotFound
	}
	return doc, nil
}

func (repo documentRepository) DeleteDocumentsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM document WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building document delete")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting documents")
	}
	return nil
}
