package assistant

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Assistant is an instructor-owned AI tutor students converse with.
type Assistant struct {
	ID           string    `json:"id" db:"id"`
	InstructorID string    `json:"instructor_id" db:"instructor_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	AvatarURL    string    `json:"avatar_url,omitempty" db:"avatar_url"`
	Published    bool      `json:"published" db:"published"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewAssistant contains information needed to create a new Assistant.
type NewAssistant struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url" validate:"omitempty,url"`
}

func (na *NewAssistant) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Description = core.CleanString(na.Description)
	na.AvatarURL = core.CleanString(na.AvatarURL)
	return validate.Struct(na)
}

// UpdateAssistant defines what information may be provided to modify an
// existing Assistant.
type UpdateAssistant struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url" validate:"omitempty,url"`
	Published   *bool  `json:"published"`
}

func (ua *UpdateAssistant) Validate(orig Assistant, validate *validator.Validate) error {
	if name := core.CleanString(ua.Name); name != "" {
		ua.Name = name
	} else {
		ua.Name = orig.Name
	}
	if desc := core.CleanString(ua.Description); desc != "" {
		ua.Description = desc
	} else {
		ua.Description = orig.Description
	}
	ua.AvatarURL = core.CleanString(ua.AvatarURL)
	return validate.Struct(ua)
}
