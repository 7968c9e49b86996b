package main

import (
	"fmt"
	"os"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/postgres"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/spf13/cobra"
)

func newSeedStatusesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-statuses",
		Short: "Insert or update the order status taxonomy",
		RunE: func(cmd *cobra.Command, args []string) error {
			taxonomy := domain.DefaultTaxonomy()
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read taxonomy file: %w", err)
				}
				if taxonomy, err = domain.ParseTaxonomy(data); err != nil {
					return err
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			lgr := newLogger(cfg, "seed")
			defer logger.Sync(lgr)

			db, err := openDatabase(cmd.Context(), cfg, lgr)
			if err != nil {
				return err
			}
			defer db.Close()

			statuses := taxonomy.Statuses()
			if err := postgres.NewStatusRepository(db.db).Upsert(cmd.Context(), statuses); err != nil {
				return err
			}

			lgr.Info("statuses_seeded", "Order statuses upserted", "", map[string]interface{}{
				"count": len(statuses),
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML taxonomy file (default: built-in taxonomy)")
	return cmd
}
