package main

import (
	"log"
	"os"

	"github.com/epe202/ulas/core"
	"github.com/epe202/ulas/core/rep"
	logsvc "github.com/epe202/ulas/services/logger"
	"github.com/epe202/ulas/storage/database"
	githubstore "github.com/epe202/ulas/storage/github"
	inmemstore "github.com/epe202/ulas/storage/inmem"
	"github.com/jmoiron/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	// set up the blob store
	var (
		store core.Store
		db    *sqlx.DB
	)
	switch conf.Storage.Backend {
	case "github":
		store = githubstore.New(conf.Storage.Github)
	case "postgres":
		db, err = database.Open(conf)
		errAndDie(err)
		defer db.Close()
		store = database.NewStore(db)
	case "memory":
		store = inmemstore.Open()
	default:
		logger.Fatalf("unknown storage backend %q", conf.Storage.Backend)
	}

	svcLogger := logsvc.NewRollbarLogger(logger, conf)

	// start CLI
	cli := commandLine{
		db:     db,
		repSvc: rep.NewService(store, svcLogger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
