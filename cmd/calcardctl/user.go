package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jw6ventures/calcard/internal/hash"
	"github.com/jw6ventures/calcard/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserPasswdCmd())
	cmd.AddCommand(newUserRmCmd())
	cmd.AddCommand(newUserLsCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a new user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.New("calcardctl: --password is required")
			}
			username := args[0]
			return storeContext(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				encoded, err := hash.Hash(password)
				if err != nil {
					return fmt.Errorf("calcardctl: hash password: %w", err)
				}
				var emailPtr *string
				if email != "" {
					emailPtr = &email
				}
				u, err := st.Users.Create(ctx, username, emailPtr, encoded)
				if err != nil {
					return fmt.Errorf("calcardctl: create user: %w", err)
				}
				fmt.Printf("created user %s (id=%s)\n", u.Username, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Optional email address")
	cmd.Flags().StringVar(&password, "password", "", "Initial password (required)")
	return cmd
}

func newUserPasswdCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.New("calcardctl: --password is required")
			}
			username := args[0]
			return storeContext(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				u, err := st.Users.GetByUsername(ctx, username)
				if err != nil {
					return fmt.Errorf("calcardctl: look up user %q: %w", username, err)
				}
				encoded, err := hash.Hash(password)
				if err != nil {
					return fmt.Errorf("calcardctl: hash password: %w", err)
				}
				if err := st.Users.UpdatePasswordHash(ctx, u.ID, encoded); err != nil {
					return fmt.Errorf("calcardctl: update password: %w", err)
				}
				fmt.Printf("updated password for %s\n", username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "New password (required)")
	return cmd
}

func newUserRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <username>",
		Short: "Delete a user (fails while the user still owns calendars)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			return storeContext(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				u, err := st.Users.GetByUsername(ctx, username)
				if err != nil {
					return fmt.Errorf("calcardctl: look up user %q: %w", username, err)
				}
				if err := st.Users.Delete(ctx, u.ID); err != nil {
					return fmt.Errorf("calcardctl: delete user %q: %w", username, err)
				}
				fmt.Printf("deleted user %s\n", username)
				return nil
			})
		},
	}
}

func newUserLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return storeContext(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				users, err := st.Users.List(ctx)
				if err != nil {
					return fmt.Errorf("calcardctl: list users: %w", err)
				}
				for _, u := range users {
					email := "-"
					if u.Email != nil {
						email = *u.Email
					}
					fmt.Printf("%s\t%s\t%s\t%s\n", u.ID, u.Username, email, u.CreatedAt.Format("2006-01-02"))
				}
				return nil
			})
		},
	}
}
