// forecast - run a dual-model price forecast from the command line
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/pricecast/internal/config"
	"github.com/aristath/pricecast/internal/di"
	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/internal/modules/forecasting"
	"github.com/aristath/pricecast/pkg/logger"
)

var (
	version = "dev"
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "forecast",
		Short: "Dual-model stock price forecasting",
		Long: `forecast loads daily closing prices for a ticker, fits an additive
trend/seasonality model and a recurrent sequence model, and prints both
forecasts side by side.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "forecast version %s\n", version)
		},
	}
}

func runCmd() *cobra.Command {
	var (
		horizon int
		start   string
		end     string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "run SYMBOL",
		Short: "Forecast closing prices for SYMBOL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseRequest(args[0], horizon, start, end)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			level := "warn"
			if verbose {
				level = "debug"
			}
			log := logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})

			container, err := di.Wire(cfg, log, !noCache)
			if err != nil {
				return err
			}
			defer container.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := container.Pipeline.Run(ctx, req)
			if err != nil {
				return userError(err)
			}

			return writeResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVar(&horizon, "horizon", 0, "Number of periods to forecast (default from config)")
	cmd.Flags().StringVar(&start, "start", "", "History start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "History end date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the local series cache")

	return cmd
}

func parseRequest(symbol string, horizon int, start, end string) (forecasting.Request, error) {
	req := forecasting.Request{Symbol: symbol, Horizon: horizon}
	if start != "" {
		t, err := time.Parse(domain.DateLayout, start)
		if err != nil {
			return req, fmt.Errorf("invalid --start %q: expected YYYY-MM-DD", start)
		}
		req.Start = t
	}
	if end != "" {
		t, err := time.Parse(domain.DateLayout, end)
		if err != nil {
			return req, fmt.Errorf("invalid --end %q: expected YYYY-MM-DD", end)
		}
		req.End = t
	}
	return req, nil
}
