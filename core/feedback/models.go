package feedback

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

// Feedback is a student's rating of an assistant or the platform.
type Feedback struct {
	ID          string      `json:"id" db:"id"`
	StudentID   string      `json:"student_id" db:"student_id"`
	AssistantID null.String `json:"assistant_id,omitempty" db:"assistant_id"`
	Rating      int         `json:"rating" db:"rating"`
	Comment     string      `json:"comment" db:"comment"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
}

// NewFeedback contains information needed to submit feedback.
type NewFeedback struct {
	AssistantID string `json:"assistant_id"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Comment     string `json:"comment"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.AssistantID = core.CleanString(nf.AssistantID)
	nf.Comment = core.CleanString(nf.Comment)
	return validate.Struct(nf)
}
