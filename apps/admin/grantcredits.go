package main

import (
	"context"

	"github.com/darasahq/darasa/core"
)

func (cli *commandLine) grantCredits(email string, credits int, note string) error {
	ctx := context.Background()

	acc, err := cli.accRepo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if _, err := cli.creditSvc.Grant(ctx, acc.ID, credits, note); err != nil {
		return err
	}
	return nil
}
