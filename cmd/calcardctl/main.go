// Command calcardctl is the admin CLI for user and MCP-token
// management, operating directly on the same Store the server
// processes use. Grounded on the Cobra command-tree style used
// elsewhere in the example pack, since the teacher itself has no
// admin CLI of its own.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jw6ventures/calcard/internal/config"
	"github.com/jw6ventures/calcard/internal/store"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// storeContext lazily opens a pool and Store for a single command
// invocation, closing the pool once the command returns.
func storeContext(ctx context.Context, fn func(ctx context.Context, st *store.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("calcardctl: load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("calcardctl: connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, store.New(pool))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "calcardctl",
		Short: "Administer calcard users and MCP bearer tokens",
	}
	root.AddCommand(newUserCmd())
	root.AddCommand(newTokenCmd())
	return root
}
