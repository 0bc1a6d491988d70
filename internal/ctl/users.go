package ctl

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server"
	"github.com/dmitrijs2005/liberandum/internal/server/auth"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/liberandum/internal/server/users"
	"github.com/spf13/cobra"
)

// withUsers opens storage and a user store whose locks are shared with
// running servers when Redis is configured.
func (s *session) withUsers(ctx context.Context, fn func(*users.Store) error) error {
	rdb, err := server.OpenRedis(ctx, s.config)
	if err != nil {
		return fmt.Errorf("open redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}
	return s.withStorage(ctx, func(repos repomanager.RepositoryManager) error {
		return fn(users.NewStore(repos.Users(), server.NewLocker(rdb), s.logger))
	})
}

func usersCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User administration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-role <email> <role>",
		Short: "Change the role of a user (user, pro_user, admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withUsers(cmd.Context(), func(store *users.Store) error {
				u, err := store.GetByEmail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				u, err = store.SetRole(cmd.Context(), u.ID, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create-admin <email> <name>",
		Short: "Create a verified admin account; the password is read from the terminal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := ReadNewPassword(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			hashed, err := auth.HashPassword(string(pw))
			if err != nil {
				return err
			}

			return s.withUsers(cmd.Context(), func(store *users.Store) error {
				u, err := store.Create(cmd.Context(), users.NewUser{
					Email:          args[0],
					Name:           args[1],
					HashedPassword: hashed,
					IsVerified:     true,
					AuthProvider:   models.AuthProviderLocal,
					Role:           models.RoleAdmin,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
				return nil
			})
		},
	})

	return cmd
}
