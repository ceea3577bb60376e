package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/darasahq/darasa/core/document"
)

type documentRepository struct {
	db *DB
}

var _ document.Repository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *DB) *documentRepository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) CreateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.documents[doc.ID] = doc
	return doc, nil
}

func (repo *documentRepository) GetDocumentByID(ctx context.Context, id string) (document.Document, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if doc, ok := repo.db.documents[id]; ok {
		return doc, nil
	}
	return document.Document{}, document.ErrNotFound
}

func (repo *documentRepository) FilterDocuments(ctx context.Context, filter document.QueryFilter, limit, offset int) ([]document.Document, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]document.Document, 0)
	for _, doc := range repo.db.documents {
		if filter.AssistantID != "" && doc.AssistantID != filter.AssistantID {
			continue
		}
		if filter.Kind != "" && doc.Kind != filter.Kind {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(doc.Title), needle) &&
				!strings.Contains(strings.ToLower(doc.Content), needle) {
				continue
			}
		}
		matches = append(matches, doc)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })

	total := len(matches)
	if offset >= total {
		return []document.Document{}, total, nil
	}
	matches = matches[offset:]
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, total, nil
}

func (repo *documentRepository) UpdateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.documents[doc.ID]
	if !ok {
		return document.Document{}, document.ErrNotFound
	}
	orig.Title = doc.Title
	orig.Content = doc.Content
	orig.UpdatedAt = doc.UpdatedAt
	repo.db.documents[doc.ID] = orig
	return orig, nil
}

func (repo *documentRepository) DeleteDocumentsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.documents, id)
	}
	return nil
}
