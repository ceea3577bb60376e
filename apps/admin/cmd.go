package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/darasahq/darasa/core/account"
	"github.com/darasahq/darasa/core/credit"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db        *sql.DB
	accRepo   account.Repository
	creditSvc *credit.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  addaccount -name NAME -email EMAIL [-role student|instructor] - create or update an account")
	fmt.Println("  grantcredits -email EMAIL -credits N [-note NOTE] - grant promotional credit to a student")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAccountCmd := flag.NewFlagSet("addaccount", flag.ExitOnError)
	addAccountName := addAccountCmd.String("name", "", "The account holder's display name.")
	addAccountEmail := addAccountCmd.String("email", "", "The account's email. An existing account with this email is updated in place.")
	addAccountRole := addAccountCmd.String("role", account.RoleStudent, "The account's role: student or instructor.")

	grantCreditsCmd := flag.NewFlagSet("grantcredits", flag.ExitOnError)
	grantCreditsEmail := grantCreditsCmd.String("email", "", "The student's email.")
	grantCreditsAmount := grantCreditsCmd.Int("credits", 0, "Number of credits to grant.")
	grantCreditsNote := grantCreditsCmd.String("note", "", "Optional ledger note.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addaccount":
		if err := addAccountCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAccountName == "" || *addAccountEmail == "" {
			addAccountCmd.Usage()
			return errHelp
		}
		return cli.addAccount(*addAccountName, *addAccountEmail, *addAccountRole)
	case "grantcredits":
		if err := grantCreditsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *grantCreditsEmail == "" || *grantCreditsAmount <= 0 {
			grantCreditsCmd.Usage()
			return errHelp
		}
		return cli.grantCredits(*grantCreditsEmail, *grantCreditsAmount, *grantCreditsNote)
	default:
		cli.printUsage()
		return errHelp
	}
}
