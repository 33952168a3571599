package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/punchamoorthee/ledgerbook/internal/reports"
	"github.com/punchamoorthee/ledgerbook/internal/service"
	"github.com/punchamoorthee/ledgerbook/internal/store"
)

// openLedger wires a ledger over both pools of dsn.
func openLedger(ctx context.Context, dsn string) (*service.Ledger, func(), error) {
	pool, err := store.Connect(ctx, dsn, 2)
	if err != nil {
		return nil, nil, err
	}
	rep, err := reports.Open(dsn, 2)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	closeFn := func() {
		rep.Close()
		pool.Close()
	}
	return service.NewLedger(store.NewLedgerStore(pool), rep, service.DefaultPolicy), closeFn, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

type balanceCmd struct {
	dsn   string
	email string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print a user's balance" }
func (*balanceCmd) Usage() string {
	return `ledgerctl balance -email <email> [-db <dsn>]
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dsn, "db", defaultDSN(), "PostgreSQL connection string")
	f.StringVar(&c.email, "email", "", "user email")
}

func (c *balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" {
		fmt.Fprintln(os.Stderr, "Error: -email is required")
		return subcommands.ExitUsageError
	}
	l, closeFn, err := openLedger(ctx, c.dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	bal, err := l.Balance(ctx, c.email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(bal.StringFixed(2))
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	dsn   string
	email string
	year  int
	month int
	start string
	end   string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print lend, in and out totals for a month or a day range" }
func (*summaryCmd) Usage() string {
	return `ledgerctl summary -email <email> (-year <y> -month <m> | -start <date> -end <date>)

  Totals a user's movements per kind. With -start and -end both days are
  included.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dsn, "db", defaultDSN(), "PostgreSQL connection string")
	f.StringVar(&c.email, "email", "", "user email")
	f.IntVar(&c.year, "year", 0, "calendar year")
	f.IntVar(&c.month, "month", 0, "calendar month, 1-12")
	f.StringVar(&c.start, "start", "", "first day (YYYY-MM-DD)")
	f.StringVar(&c.end, "end", "", "last day (YYYY-MM-DD)")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	byRange := c.start != "" || c.end != ""
	if c.email == "" || (!byRange && (c.year == 0 || c.month == 0)) {
		fmt.Fprintln(os.Stderr, "Error: -email and either -year/-month or -start/-end are required")
		return subcommands.ExitUsageError
	}
	l, closeFn, err := openLedger(ctx, c.dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	var sum any
	if byRange {
		sum, err = l.RangeSummary(ctx, c.email, c.start, c.end)
	} else {
		sum, err = l.MonthlySummary(ctx, c.email, c.year, c.month)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printJSON(sum)
	return subcommands.ExitSuccess
}
