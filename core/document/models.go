package document

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

// Kinds of assistant content.
const (
	KindDocument = "document"
	KindNote     = "note"
	KindMedia    = "media"
	KindWeb      = "web"
)

var AllKinds = []string{KindDocument, KindNote, KindMedia, KindWeb}

// Document is one content block feeding an assistant: an uploaded
// document, a knowledge note, a media reference, or web-derived content.
type Document struct {
	ID          string      `json:"id" db:"id"`
	AssistantID string      `json:"assistant_id" db:"assistant_id"`
	Kind        string      `json:"kind" db:"kind"`
	Title       string      `json:"title" db:"title"`
	Content     string      `json:"content" db:"content"`
	SourceURL   null.String `json:"source_url,omitempty" db:"source_url"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// NewDocument contains information needed to create a content block.
type NewDocument struct {
	Kind      string `json:"kind" validate:"required,oneof=document note media web"`
	Title     string `json:"title" validate:"required"`
	Content   string `json:"content"`
	SourceURL string `json:"source_url" validate:"omitempty,url"`
}

func (nd *NewDocument) Validate(validate *validator.Validate) error {
	nd.Kind = core.CleanString(nd.Kind, true /* lower */)
	nd.Title = core.CleanString(nd.Title)
	nd.SourceURL = core.CleanString(nd.SourceURL)
	return validate.Struct(nd)
}

// UpdateDocument defines what information may be provided to modify an
// existing content block.
type UpdateDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (ud *UpdateDocument) Validate(orig Document, validate *validator.Validate) error {
	if title := core.CleanString(ud.Title); title != "" {
		ud.Title = title
	} else {
		ud.Title = orig.Title
	}
	if ud.Content == "" {
		ud.Content = orig.Content
	}
	return validate.Struct(ud)
}

// QueryFilter narrows a paginated content listing; fields AND together.
type QueryFilter struct {
	AssistantID string `query:"assistant_id"`
	Kind        string `query:"kind"`
	Search      string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.AssistantID = core.CleanString(qf.AssistantID)
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}

// Page is one slice of a paginated listing; Total counts all matches so
// callers know when to stop fetching.
type Page struct {
	Items  []Document `json:"items"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}
