// Package commands implements the giftctl command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Adams521/everything-gift/internal/bootstrap"
	"github.com/Adams521/everything-gift/internal/config"
	"github.com/Adams521/everything-gift/internal/logging"
)

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	driver   string
	seedFile string
	logLevel string
	noAI     bool
}

// NewRootCmd builds the giftctl command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "giftctl",
		Short: "Everything Gift admin CLI",
		Long: `giftctl runs the gift recommendation pipeline from the terminal, lists the
category taxonomy and queries marketplace sources. It reads the same environment
variables (and .env file) as the server.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(logging.Config{Level: opts.logLevel, Format: "console", Output: cmd.ErrOrStderr()})
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "catalog driver override (postgres or memory)")
	rootCmd.PersistentFlags().StringVar(&opts.seedFile, "seed", "", "JSON seed file for the memory driver")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&opts.noAI, "no-ai", false, "skip the AI engine and use rule-based filtering")

	rootCmd.AddCommand(
		newRecommendCmd(opts),
		newCategoriesCmd(opts),
		newSourcesCmd(opts),
	)
	return rootCmd
}

// loadApp applies flag overrides to the environment configuration and wires the services
func loadApp(ctx context.Context, opts *globalOptions) (*bootstrap.App, error) {
	if opts.driver != "" {
		os.Setenv("CATALOG_DRIVER", opts.driver)
	}
	if opts.seedFile != "" {
		os.Setenv("CATALOG_SEED_FILE", opts.seedFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{DisableAI: opts.noAI, DisableCache: true})
	if err != nil {
		return nil, fmt.Errorf("initialize services: %w", err)
	}
	return app, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
