package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var ErrNotFound = errors.New("document not found")

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type (
	Repository interface {
		CreateDocument(ctx context.Context, doc Document) (Document, error)
		GetDocumentByID(ctx context.Context, id string) (Document, error)
		// FilterDocuments applies AND on available QueryFilter fields;
		// QueryFilter.Search does a case-insensitive match on Title or
		// Content. Returns the page slice and the total match count.
		FilterDocuments(ctx context.Context, filter QueryFilter, limit, offset int) ([]Document, int, error)
		UpdateDocument(ctx context.Context, doc Document) (Document, error)
		DeleteDocumentsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, assistantID string, nd NewDocument) (Document, error) {
	now := time.Now().UTC()
	doc := Document{
		ID:          uuid.NewString(),
		AssistantID: assistantID,
		Kind:        nd.Kind,
		Title:       nd.Title,
		Content:     nd.Content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nd.SourceURL != "" {
		doc.SourceURL = null.StringFrom(nd.SourceURL)
	}
	return svc.repo.CreateDocument(ctx, doc)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Document, error) {
	return svc.repo.GetDocumentByID(ctx, id)
}

// Filter returns one page of content blocks. Limits are clamped so a
// scrolling client cannot request unbounded pages.
func (svc *Service) Filter(ctx context.Context, filter QueryFilter, limit, offset int) (Page, error) {
	filter.Clean()
	if limit <= 0 {
		limit = defaultPageLimit
	} else if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := svc.repo.FilterDocuments(ctx, filter, limit, offset)
	if err != nil {
		return Page{}, errors.Wrap(err, "filtering documents")
	}
	if items == nil {
		items = []Document{}
	}
	return Page{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (svc *Service) Update(ctx context.Context, id string, ud UpdateDocument) (Document, error) {
	return svc.repo.UpdateDocument(ctx, Document{
		ID:        id,
		Title:     ud.Title,
		Content:   ud.Content,
		UpdatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteDocumentsByID(ctx, ids...)
}
