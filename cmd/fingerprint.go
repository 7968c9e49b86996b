package main

import (
	"fmt"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/app/fingerprint"
	"github.com/spf13/cobra"
)

func newFingerprintCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Show or reset this device's guest fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			lgr := newLogger(cfg, "fingerprint")
			defer logger.Sync(lgr)

			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			provider := fingerprint.NewProvider(store, fingerprint.HostEnvironment{UserAgent: "ordertrack-cli"}, lgr)
			if reset {
				if err := provider.Reset(cmd.Context()); err != nil {
					return err
				}
			}

			fp, err := provider.Fingerprint(cmd.Context())
			if err != nil {
				return err
			}

			d := provider.Descriptors()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fingerprint: %s\n", fp)
			fmt.Fprintf(out, "user_agent:  %s\n", d.UserAgent)
			fmt.Fprintf(out, "timezone:    %s\n", d.Timezone)
			fmt.Fprintf(out, "language:    %s\n", d.Language)
			fmt.Fprintf(out, "platform:    %s\n", d.Platform)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "discard the stored fingerprint and create a new one")
	return cmd
}
