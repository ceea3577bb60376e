package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/account"
)

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo accountRepository) UpsertAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	const q = `
		INSERT INTO app_user (id, name, email, avatar_url, role, created_at, updated_at)
		VALUES (:id, :name, :email, :avatar_url, :role, :created_at, :updated_at)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, avatar_url = EXCLUDED.avatar_url,
		    role = EXCLUDED.role, updated_at = EXCLUDED.updated_at`
	if _, err := repo.db.NamedExecContext(ctx, q, acc); err != nil {
		return account.Account{}, errors.Wrap(err, "upserting account")
	}
	return repo.GetAccountByEmail(ctx, acc.Email)
}

func (repo accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	var acc account.Account
	const q = `SELECT * FROM app_user WHERE email = $1`
	if err := repo.db.GetContext(ctx, &acc, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "finding account by email")
	}
	return acc, nil
}
