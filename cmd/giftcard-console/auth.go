package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/giftcard-console/internal/credential"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/store"
)

func newLoginCmd() *cobra.Command {
	var (
		token        string
		refreshToken string
		role         string
		user         model.CachedUser
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token and the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
			if token == "" {
				return errors.New("--token is required")
			}

			sess := credential.Session{AccessToken: token, RefreshToken: refreshToken}
			if role != "" {
				r, err := model.ParseRole(role)
				if err != nil {
					return err
				}
				user.Role = r
			}
			if user.Role != "" || user.ID != "" || user.Email != "" {
				u := user
				sess.User = &u
			}

			resolved, ok := credential.NewAuthContext(sess).Role()
			if !ok {
				return errors.New("the token carries no role claim: pass --role admin or --role merchant")
			}

			creds, err := credential.Open(cfg.Keyring.Dir)
			if err != nil {
				return err
			}
			if err := creds.SaveSession(sess); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", resolved)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Access token (JWT)")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token")
	cmd.Flags().StringVar(&role, "role", "", "User role (admin, merchant); read from the token when omitted")
	cmd.Flags().StringVar(&user.ID, "user-id", "", "User ID")
	cmd.Flags().StringVar(&user.Email, "email", "", "User email")
	cmd.Flags().StringVar(&user.Name, "name", "", "User display name")
	cmd.Flags().StringVar(&user.MerchantID, "merchant-id", "", "Merchant ID for merchant users")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials and cached data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			creds, err := credential.Open(cfg.Keyring.Dir)
			if err != nil {
				return err
			}
			if err := creds.ClearSession(); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}

			if err := dropSnapshots(cmd.Context(), cfg.Cache.SnapshotPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// dropSnapshots deletes every persisted cache snapshot so the next user
// does not see the previous user's data.
func dropSnapshots(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == store.MemoryPath {
		return nil
	}
	snapshots, err := store.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer snapshots.Close()
	if err := snapshots.DeleteSnapshots(ctx, ""); err != nil {
		return fmt.Errorf("deleting cache snapshots: %w", err)
	}
	return nil
}
