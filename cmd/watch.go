package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/postgres"
	"github.com/YelzhanWeb/ordertrack/internal/app/fingerprint"
	"github.com/YelzhanWeb/ordertrack/internal/app/projection"
	"github.com/YelzhanWeb/ordertrack/internal/app/realtime"
	"github.com/YelzhanWeb/ordertrack/internal/config"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	userID      string
	fingerprint string
	admin       bool
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a scoped order list live",
		Long: `watch keeps the orders of one scope in sync over the configured change
feed and prints the list on every change. Without flags it follows the orders
placed from this device.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.userID, "user-id", "", "follow the orders of a signed-in user")
	cmd.Flags().StringVar(&opts.fingerprint, "fingerprint", "", "follow the orders of a guest device")
	cmd.Flags().BoolVar(&opts.admin, "admin", false, "follow every non-terminal order")
	cmd.MarkFlagsMutuallyExclusive("user-id", "fingerprint", "admin")
	return cmd
}

func runWatch(ctx context.Context, cfg *config.Config, opts watchOptions, out io.Writer) error {
	lgr := newLogger(cfg, "watch")
	defer logger.Sync(lgr)

	db, err := openDatabase(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer db.Close()

	bus, err := openChangeBus(cfg, db, lgr)
	if err != nil {
		return err
	}
	defer bus.close()

	statusRepo := postgres.NewStatusRepository(db.db)
	taxonomy, err := loadTaxonomy(ctx, statusRepo, lgr)
	if err != nil {
		return err
	}

	scope, err := resolveScope(ctx, cfg, opts, taxonomy)
	if err != nil {
		return err
	}

	manager := realtime.NewManager(postgres.NewOrderRepository(db.db), bus.feed, lgr, realtime.Options{
		PollInterval: cfg.Realtime.PollInterval,
	})
	defer manager.Stop()

	projector := projection.NewProjector(taxonomy, thresholds(cfg.Thresholds))
	syncer := manager.Switch(ctx, scope)

	lgr.Info("watch_started", "Following orders", "startup", map[string]interface{}{
		"scope":  scope.Key(),
		"driver": cfg.Realtime.Driver,
	})

	// Прошедшее время меняется и без событий
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lgr.Info("shutdown_initiated", "Stopping order watch", "shutdown", nil)
			return nil
		case <-syncer.Changes():
		case <-ticker.C:
		}
		renderOrders(out, syncer, projector.ProjectAll(syncer.Orders(), time.Now()))
	}
}

// resolveScope picks the scope from the flags, defaulting to this device.
func resolveScope(ctx context.Context, cfg *config.Config, opts watchOptions, taxonomy *domain.Taxonomy) (domain.OrderScope, error) {
	switch {
	case opts.admin:
		return domain.AdminScope(taxonomy.Terminal()), nil
	case opts.userID != "":
		return domain.UserScope(opts.userID), nil
	case opts.fingerprint != "":
		return domain.GuestScope(opts.fingerprint), nil
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return domain.OrderScope{}, err
	}
	defer closeStore()

	fp, err := fingerprint.NewProvider(store, fingerprint.HostEnvironment{}, logger.NewNop()).Fingerprint(ctx)
	if err != nil {
		return domain.OrderScope{}, err
	}
	return domain.GuestScope(fp), nil
}

func renderOrders(out io.Writer, syncer *realtime.Syncer, views []projection.View) {
	fmt.Fprintf(out, "\n%s  scope=%s  mode=%s  orders=%d\n",
		time.Now().Format("15:04:05"), syncer.Scope().Key(), syncer.Mode(), len(views))
	if err := syncer.Err(); err != nil {
		fmt.Fprintf(out, "last sync error: %v\n", err)
	}
	renderTable(out, views)
}

func renderTable(out io.Writer, views []projection.View) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tSTATUS\tCUSTOMER\tPHONE\tITEMS\tTOTAL\tELAPSED\t")
	for _, v := range views {
		phone := "-"
		if v.DisplayPhone != nil {
			phone = *v.DisplayPhone
		}
		elapsed := v.ElapsedText
		if v.Delayed {
			elapsed += " (delayed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t\n",
			v.Number, label(v), v.DisplayName, phone, v.ItemCount, v.Total.StringFixed(2), elapsed)
	}
	w.Flush()
}

func label(v projection.View) string {
	if v.StatusLabel.EN != "" {
		return v.StatusLabel.EN
	}
	return v.Status
}
