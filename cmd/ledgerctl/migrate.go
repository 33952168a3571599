package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/subcommands"
	"github.com/punchamoorthee/ledgerbook/internal/store"
)

type migrateCmd struct {
	dsn string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create the ledger tables and indexes" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate [-db <dsn>]

  Creates users, transactions and obligations if they do not exist.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dsn, "db", defaultDSN(), "PostgreSQL connection string")
}

func (c *migrateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	pool, err := store.Connect(ctx, c.dsn, 2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	log.Println("Schema is up to date.")
	return subcommands.ExitSuccess
}
