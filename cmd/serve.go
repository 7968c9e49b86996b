package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/postgres"
	"github.com/YelzhanWeb/ordertrack/internal/app/admin"
	"github.com/YelzhanWeb/ordertrack/internal/app/checkout"
	"github.com/YelzhanWeb/ordertrack/internal/app/projection"
	"github.com/YelzhanWeb/ordertrack/internal/app/statusgroup"
	"github.com/YelzhanWeb/ordertrack/internal/app/tracking"
	"github.com/YelzhanWeb/ordertrack/internal/config"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	httpAdapter "github.com/YelzhanWeb/ordertrack/internal/adapter/http"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the order tracking HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.App.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 3000, "HTTP port")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	lgr := newLogger(cfg, "api")
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

	// Initialize repositories
	orderRepo := postgres.NewOrderRepository(db.db)
	statusRepo := postgres.NewStatusRepository(db.db)

	taxonomy, err := loadTaxonomy(ctx, statusRepo, lgr)
	if err != nil {
		return err
	}

	pricing, err := parsePricing(cfg.Pricing)
	if err != nil {
		return err
	}

	// Initialize services
	checkoutService := checkout.NewService(orderRepo, bus.publisher, taxonomy, pricing, lgr)
	adminService := admin.NewService(orderRepo, bus.publisher, taxonomy, lgr)
	trackingService := tracking.NewService(
		orderRepo,
		statusgroup.NewLoader(statusRepo, lgr),
		projection.NewProjector(taxonomy, thresholds(cfg.Thresholds)),
		lgr,
	)

	// Initialize HTTP handlers
	handler := httpAdapter.NewRouter(
		httpAdapter.NewOrderHandler(checkoutService, adminService, lgr),
		httpAdapter.NewTrackingHandler(trackingService, taxonomy.Terminal(), lgr),
		lgr,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Order tracking API started on port %d", cfg.App.Port), "startup", map[string]interface{}{
		"port":            cfg.App.Port,
		"realtime_driver": cfg.Realtime.Driver,
	})

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		lgr.Info("shutdown_initiated", "Shutting down order tracking API", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
		return err
	}
	return nil
}

func parsePricing(cfg config.PricingConfig) (checkout.Pricing, error) {
	var p checkout.Pricing
	var err error
	if cfg.DeliveryFee != "" {
		if p.DeliveryFee, err = decimal.NewFromString(cfg.DeliveryFee); err != nil {
			return p, fmt.Errorf("%w: pricing.delivery_fee: %v", config.ErrInvalidConfig, err)
		}
	}
	if cfg.TaxRate != "" {
		if p.TaxRate, err = decimal.NewFromString(cfg.TaxRate); err != nil {
			return p, fmt.Errorf("%w: pricing.tax_rate: %v", config.ErrInvalidConfig, err)
		}
	}
	return p, nil
}
