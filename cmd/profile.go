package main

import (
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/profileapi"
	"github.com/YelzhanWeb/ordertrack/internal/app/auth"
	"github.com/YelzhanWeb/ordertrack/internal/app/profile"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect or update the signed-in profile",
	}
	cmd.AddCommand(newProfileShowCmd(), newProfileUpdateCmd(), newProfileSignOutCmd())
	return cmd
}

// withAuthStore opens the local storage and the auth store on top of it.
func withAuthStore(cmd *cobra.Command, fn func(store *auth.Store, lgr logger.Logger, token string, api *profileapi.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lgr := newLogger(cfg, "profile")
	defer logger.Sync(lgr)

	kv, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	api, err := profileapi.NewClient(cfg.ProfileAPI.BaseURL, cfg.ProfileAPI.Timeout)
	if err != nil {
		return err
	}

	store := auth.NewStore(cmd.Context(), auth.NewKVPersister(kv), lgr)
	return fn(store, lgr, cfg.ProfileAPI.Token, api)
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the persisted profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuthStore(cmd, func(store *auth.Store, _ logger.Logger, _ string, _ *profileapi.Client) error {
				p := store.Profile()
				if p == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
					return nil
				}
				return printJSON(cmd, p)
			})
		},
	}
}

func newProfileUpdateCmd() *cobra.Command {
	var token string
	var fullName, phone, address, avatar string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the profile through the profile API",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.ProfilePatch
			set := func(flag string, v *string) *string {
				if cmd.Flags().Changed(flag) {
					return v
				}
				return nil
			}
			patch.FullName = set("full-name", &fullName)
			patch.Phone = set("phone", &phone)
			patch.Address = set("address", &address)
			patch.AvatarURL = set("avatar-url", &avatar)

			return withAuthStore(cmd, func(store *auth.Store, lgr logger.Logger, cfgToken string, api *profileapi.Client) error {
				if token == "" {
					token = cfgToken
				}
				updated, err := profile.NewUpdater(profile.StaticToken(token), api, store, lgr).Update(cmd.Context(), patch)
				if err != nil {
					return err
				}
				return printJSON(cmd, updated)
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "session token (default: profile_api.token)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&address, "address", "", "default delivery address")
	cmd.Flags().StringVar(&avatar, "avatar-url", "", "avatar URL")
	return cmd
}

func newProfileSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign-out",
		Short: "Forget the persisted profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuthStore(cmd, func(store *auth.Store, _ logger.Logger, _ string, _ *profileapi.Client) error {
				return store.SetProfile(cmd.Context(), nil)
			})
		},
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
