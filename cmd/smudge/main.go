package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wdm0006/smudge/pkg/catalog"
	"github.com/wdm0006/smudge/pkg/config"
	"github.com/wdm0006/smudge/pkg/logging"
	"github.com/wdm0006/smudge/pkg/metrics"
	"github.com/wdm0006/smudge/pkg/stage"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "0.1.0-dev"
	commit  = "none"
)

// app carries what the global flags resolve to.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger *zap.Logger
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

// catalog loads catalog_path, or the built-in catalog when it is empty, and
// narrows it to the given categories.
func (a *app) catalog(path string, only []string) (*catalog.Catalog, error) {
	if path == "" {
		path = a.cfg.CatalogPath
	}
	cat := catalog.Default()
	if path != "" {
		var err error
		if cat, err = catalog.Load(path); err != nil {
			return nil, err
		}
	}
	if len(only) > 0 {
		cat = cat.Only(only...)
		if len(cat.Defects) == 0 {
			return nil, fmt.Errorf("no defects left after --only %v", only)
		}
	}
	return cat, nil
}

func (a *app) options(cat *catalog.Catalog, m *metrics.Metrics) stage.Options {
	return stage.Options{
		Paths:        a.cfg.Paths(),
		Catalog:      cat,
		PreviewRows:  a.cfg.PreviewRows,
		ManifestPath: a.cfg.ManifestPath,
		Metrics:      m,
		Logger:       a.logger,
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "smudge",
		Short: "Inject scripted data-quality defects into the Superstore dataset",
		Long: `smudge ingests the Superstore retail dataset, writes a prepared copy and then
applies an ordered catalog of defects (nulls, shifted years, scrambled case,
flipped signs, corrupted types and outliers) to produce a dirty activity
dataset for data-cleaning exercises.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (.yaml, .toml or .json)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "console or json")

	root.AddCommand(
		ingestCmd(a),
		injectCmd(a),
		runCmd(a),
		catalogCmd(a),
		assetsCmd(a),
		runsCmd(a),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "smudge", version, commit)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("error:"), err)
		stop()
		os.Exit(1)
	}
}
