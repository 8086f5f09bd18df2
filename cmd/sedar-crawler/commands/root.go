package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sedar-crawler/internal/components/telemetry"
	"sedar-crawler/internal/config"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	configPath *string
	quiet      *bool
)

// globals are filled in by the root command before any subcommand runs.
var globals struct {
	cfg       config.Config
	tel       telemetry.API
	telemetry telemetry.Telemetry
}

var rootCmd = &cobra.Command{
	Use:   "sedar-crawler",
	Short: "sedar-crawler downloads regulatory filings and the profiles of the companies that filed them.",

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initSlog(*quiet)

		cfg, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		globals.cfg = cfg
		globals.tel = telemetry.SlogAPI{}

		if !cfg.Telemetry.Enabled() {
			return nil
		}
		t, err := telemetry.Setup(cmd.Context(), "sedar-crawler", cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		globals.telemetry = t

		otelApi, err := telemetry.NewOtelAPI(globals.tel)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		globals.tel = otelApi
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return globals.telemetry.Shutdown(ctx)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The configuration file, a <name>.local.json5 next to it overrides it.")
	quiet = rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only log info and above.")
}

func initSlog(quiet bool) {
	level := slog.LevelDebug
	if quiet {
		level = slog.LevelInfo
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
