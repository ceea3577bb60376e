package account

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("account not found")

// Platform roles. Authentication happens at the gateway; these only
// drive authorization inside the API.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
)

// Account is one provisioned user row. Accounts are normally created by
// the identity gateway; the admin CLI seeds them for local development.
type Account struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	AvatarURL string    `json:"avatar_url" db:"avatar_url"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

type Repository interface {
	// UpsertAccount creates the account or, when the email is already
	// taken, updates the existing row in place.
	UpsertAccount(ctx context.Context, acc Account) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
}
