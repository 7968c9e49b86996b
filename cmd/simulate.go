package main

import (
	"context"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/postgres"
	"github.com/YelzhanWeb/ordertrack/internal/app/admin"
	"github.com/YelzhanWeb/ordertrack/internal/app/checkout"
	"github.com/YelzhanWeb/ordertrack/internal/config"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	count       int
	interval    time.Duration
	advance     bool
	fingerprint string
}

func newSimulateCmd() *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Place fake orders and move them through the kitchen",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runSimulate(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.count, "count", 10, "number of orders to place")
	cmd.Flags().DurationVar(&opts.interval, "interval", 2*time.Second, "pause between orders")
	cmd.Flags().BoolVar(&opts.advance, "advance", true, "advance earlier orders one status per tick")
	cmd.Flags().StringVar(&opts.fingerprint, "fingerprint", "", "device fingerprint for the guest orders (default: random per order)")
	return cmd
}

type menuItem struct {
	id    string
	name  string
	price string
}

var menu = []menuItem{
	{"p-margherita", "Margherita", "9.50"},
	{"p-pepperoni", "Pepperoni", "11.00"},
	{"p-tortilla", "Tortilla de patatas", "6.50"},
	{"p-croquetas", "Croquetas", "7.25"},
	{"p-lemonade", "Lemonade", "2.00"},
	{"p-flan", "Flan", "4.00"},
}

func runSimulate(ctx context.Context, cfg *config.Config, opts simulateOptions) error {
	lgr := newLogger(cfg, "simulate")
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

	orderRepo := postgres.NewOrderRepository(db.db)
	taxonomy, err := loadTaxonomy(ctx, postgres.NewStatusRepository(db.db), lgr)
	if err != nil {
		return err
	}
	pricing, err := parsePricing(cfg.Pricing)
	if err != nil {
		return err
	}

	checkoutService := checkout.NewService(orderRepo, bus.publisher, taxonomy, pricing, lgr)
	adminService := admin.NewService(orderRepo, bus.publisher, taxonomy, lgr)

	fake := faker.New()
	var placed []*domain.Order

	for i := 0; i < opts.count; i++ {
		order, err := checkoutService.PlaceOrder(ctx, fakeOrder(fake, opts.fingerprint))
		if err != nil {
			lgr.Error("simulate_order_failed", "Failed to place simulated order", "", nil, err)
		} else {
			placed = append(placed, order)
		}

		if opts.advance {
			placed = advanceOne(ctx, adminService, taxonomy, fake, placed, lgr)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.interval):
		}
	}

	lgr.Info("simulation_finished", "Simulated orders placed", "", map[string]interface{}{"count": len(placed)})
	return nil
}

func fakeOrder(fake faker.Faker, fp string) interfaces.PlaceOrderCommand {
	if fp == "" {
		fp = fake.UUID().V4()
	}
	name := fake.Person().Name()
	phone := fake.Phone().E164Number()

	cmd := interfaces.PlaceOrderCommand{
		DeviceFingerprint: &fp,
		OrderType:         string(domain.OrderTypePickup),
		GuestName:         &name,
		GuestPhone:        &phone,
	}
	if fake.Boolean().Bool() {
		addr := fake.Address().Address()
		cmd.OrderType = string(domain.OrderTypeDelivery)
		cmd.DeliveryAddress = &addr
	}

	for n := fake.IntBetween(1, 4); n > 0; n-- {
		item := menu[fake.IntBetween(0, len(menu)-1)]
		cmd.Items = append(cmd.Items, interfaces.PlaceOrderItemCommand{
			ProductID: item.id,
			Name:      item.name,
			Quantity:  fake.IntBetween(1, 3),
			UnitPrice: decimal.RequireFromString(item.price),
		})
	}
	return cmd
}

// advanceOne moves a random placed order to one of its next statuses and
// drops it from the list once it reaches a terminal status.
func advanceOne(ctx context.Context, svc *admin.Service, taxonomy *domain.Taxonomy, fake faker.Faker, placed []*domain.Order, lgr logger.Logger) []*domain.Order {
	if len(placed) == 0 {
		return placed
	}
	i := fake.IntBetween(0, len(placed)-1)
	order := placed[i]

	st, ok := taxonomy.Lookup(order.Status)
	var next []string
	if ok {
		for _, id := range st.NextStatuses {
			if id == admin.CancelledStatus || (id == "delivering" && order.Type == domain.OrderTypePickup) {
				continue
			}
			next = append(next, id)
		}
	}
	if len(next) == 0 {
		return append(placed[:i], placed[i+1:]...)
	}

	updated, err := svc.Advance(ctx, order.ID, fake.RandomStringElement(next), "simulator")
	if err != nil {
		lgr.Error("simulate_advance_failed", "Failed to advance simulated order", "", map[string]interface{}{"order_number": order.Number}, err)
		return append(placed[:i], placed[i+1:]...)
	}
	placed[i] = updated
	return placed
}
