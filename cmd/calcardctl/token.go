package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jw6ventures/calcard/internal/hash"
	"github.com/jw6ventures/calcard/internal/store"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage MCP bearer tokens",
	}
	cmd.AddCommand(newTokenAddCmd())
	cmd.AddCommand(newTokenRmCmd())
	cmd.AddCommand(newTokenLsCmd())
	return cmd
}

// generateBearerToken returns the raw mcp_{base64url(32 random bytes)}
// token text.
func generateBearerToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("calcardctl: generate token: %w", err)
	}
	return "mcp_" + base64.RawURLEncoding.EncodeToString(buf), nil
}

func newTokenAddCmd() *cobra.Command {
	var name string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Issue a new MCP bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			return storeContext(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				u, err := st.Users.GetByUsername(ctx, username)
				if err != nil {
					return fmt.Errorf("calcardctl: look up user %q: %w", username, err)
				}

				raw, err := generateBearerToken()
				if err != nil {
					return err
				}
				encoded, err := hash.Hash(raw)
				if err != nil {
					return fmt.Errorf("calcardctl: hash token: %w", err)
				}

				var expiresAt *time.Time
				if ttl > 0 {
					t := time.Now().UTC().Add(ttl)
					expiresAt = &t
				}

				tok, err := st.Tokens.Create(ctx, u.ID, encoded, name, expiresAt)
				if err != nil {
					return fmt.Errorf("calcardctl: create token: %w", err)
				}

				// The raw token is only ever shown here; only its Argon2id
				// hash is retained.
				fmt.Printf("token id: %s\n", tok.ID)
				fmt.Printf("bearer token (shown once): %s\n", raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Human-readable label for the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Optional expiry, e.g. 720h (default: never expires)")
	return cmd
}

func newTokenRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <token-id>",
		Short: "Revoke an MCP bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID := args[0]
			return storeContext(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				if err := st.Tokens.Delete(ctx, tokenID); err != nil {
					return fmt.Errorf("calcardctl: delete token %q: %w", tokenID, err)
				}
				fmt.Printf("deleted token %s\n", tokenID)
				return nil
			})
		},
	}
}

func newTokenLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <username>",
		Short: "List a user's MCP bearer tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			return storeContext(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				u, err := st.Users.GetByUsername(ctx, username)
				if err != nil {
					return fmt.Errorf("calcardctl: look up user %q: %w", username, err)
				}
				tokens, err := st.Tokens.ListByUser(ctx, u.ID)
				if err != nil {
					return fmt.Errorf("calcardctl: list tokens: %w", err)
				}
				for _, t := range tokens {
					expiry := "never"
					if t.ExpiresAt != nil {
						expiry = t.ExpiresAt.Format(time.RFC3339)
					}
					fmt.Printf("%s\t%s\t%s\t%s\n", t.ID, t.Name, t.CreatedAt.Format("2006-01-02"), expiry)
				}
				return nil
			})
		},
	}
}
