package inmemdb

import (
	"context"

	"github.com/darasahq/darasa/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) UpsertAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.users {
		if u.Email == acc.Email {
			acc.ID = u.ID
			break
		}
	}
	repo.db.users[acc.ID] = UserRecord{
		ID:        acc.ID,
		Name:      acc.Name,
		Email:     acc.Email,
		AvatarURL: acc.AvatarURL,
		Role:      acc.Role,
	}
	return acc, nil
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, u := range repo.db.users {
		if u.Email == email {
			return account.Account{
				ID:        u.ID,
				Name:      u.Name,
				Email:     u.Email,
				AvatarURL: u.AvatarURL,
				Role:      u.Role,
			}, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}
