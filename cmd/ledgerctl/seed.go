package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/subcommands"
	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/punchamoorthee/ledgerbook/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type seedCmd struct {
	dsn      string
	users    int
	balance  string
	password string
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "bulk load benchmark users" }
func (*seedCmd) Usage() string {
	return `ledgerctl seed [-db <dsn>] [-n <users>] [-balance <amount>]

  Loads users bench-0001@example.com ... with the given opening balance.
  Does nothing if the users table already holds at least n rows.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dsn, "db", defaultDSN(), "PostgreSQL connection string")
	f.IntVar(&c.users, "n", 1000, "number of users")
	f.StringVar(&c.balance, "balance", "100.00", "opening balance per user")
	f.StringVar(&c.password, "password", "benchmark", "password shared by every seeded user")
}

func (c *seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	opening, err := decimal.NewFromString(c.balance)
	if err != nil || opening.IsNegative() || c.users < 1 {
		fmt.Fprintf(os.Stderr, "Error: -n must be positive and -balance a non-negative amount\n")
		return subcommands.ExitUsageError
	}

	pool, err := store.Connect(ctx, c.dsn, 2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	log.Println("--- Seeding Database ---")

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if count >= c.users {
		log.Printf("Database already has %d users. Skipping.", count)
		return subcommands.ExitSuccess
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	log.Printf("Generating %d users...", c.users)
	users := make([]domain.User, 0, c.users)
	for i := 1; i <= c.users; i++ {
		users = append(users, domain.User{
			Email:         fmt.Sprintf("bench-%04d@example.com", i),
			Name:          fmt.Sprintf("Bench User %d", i),
			PasswordHash:  string(hash),
			EmailVerified: true,
			Balance:       opening,
		})
	}

	n, err := store.NewLedgerStore(pool).SeedUsers(ctx, users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bulk insert failed: %v\n", err)
		return subcommands.ExitFailure
	}
	log.Printf("Successfully seeded %d users.", n)
	return subcommands.ExitSuccess
}
