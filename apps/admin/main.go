package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/credit"
	"github.com/darasahq/darasa/storage/database"
	sqlxrepos "github.com/darasahq/darasa/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := setUpDB(conf)
	errAndDie(err)
	defer db.Close()
	dbx := sqlx.NewDb(db, "postgres")

	// start CLI
	cli := commandLine{
		db:        db,
		accRepo:   sqlxrepos.NewAccountRepository(dbx),
		creditSvc: credit.NewService(sqlxrepos.NewCreditRepository(dbx)),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	return db, db.Ping()
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
