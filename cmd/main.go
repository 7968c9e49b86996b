package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ordertrack",
	Short: "Restaurant order tracking service",
	Long: `ordertrack serves the order tracking API, keeps scoped order lists in sync
with the database over a realtime change feed, and manages the schema and the
order status taxonomy.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(loadDotEnv)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml when present)")

	rootCmd.AddCommand(
		newServeCmd(),
		newWatchCmd(),
		newMigrateCmd(),
		newSeedStatusesCmd(),
		newSimulateCmd(),
		newFingerprintCmd(),
		newProfileCmd(),
	)
}

// loadDotEnv exports .env into the process environment when the file exists.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
