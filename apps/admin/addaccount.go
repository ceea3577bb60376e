package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
)

// addAccount updates or creates an account. Accounts normally come from
// the identity gateway; this exists for local development and seeding.
func (cli *commandLine) addAccount(name, email, role string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	if role != account.RoleStudent && role != account.RoleInstructor {
		return fmt.Errorf("unknown role %q", role)
	}

	now := time.Now().UTC()
	acc := account.Account{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := cli.accRepo.UpsertAccount(ctx, acc); err != nil {
		return err
	}
	return nil
}
