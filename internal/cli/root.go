// Package cli provides the command-line interface for the chain tracker.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"upstox-chainwatch/internal/config"
	"upstox-chainwatch/internal/logging"
	"upstox-chainwatch/internal/meta"
	"upstox-chainwatch/internal/refdata"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "chainwatch",
		Short: "chainwatch - live option-chain analytics for Indian derivatives",
		Long: `chainwatch continuously tracks option-chain quotes for a set of index and
stock underlyings, derives theoretical fair values under three pricing
models, and streams consolidated snapshots to websocket subscribers.

It consumes the Upstox v2 market-quote and option-chain APIs. Run
'chainwatch serve' to start the tracker and the broadcast server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/chainwatch)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chainwatch %s\n", Version)
		},
	}
}

// buildTargets turns the reference tables and the underlyings config into
// resolver targets.
func buildTargets(cfg *config.Config, tables *refdata.Tables) []meta.Target {
	names := cfg.Underlyings.Include
	if len(names) == 0 {
		names = tables.Names()
	}

	targets := make([]meta.Target, 0, len(names))
	for _, name := range names {
		key, ok := tables.SpotKey(name)
		if !ok {
			continue
		}
		targets = append(targets, meta.Target{
			Name:    name,
			SpotKey: key,
			Expiry:  cfg.Underlyings.ExpiryFor(name),
		})
	}
	return targets
}
