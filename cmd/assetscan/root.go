package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/assetregistry/internal/domain/registry"
	"github.com/GriffinCanCode/assetregistry/internal/infrastructure/config"
	"github.com/GriffinCanCode/assetregistry/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/assetregistry/internal/logging"
)

// app carries configuration shared by every command.
type app struct {
	cfg    *config.Config
	logger *logging.Logger

	roots       []string
	snapshot    string
	optionsFile string
	logLevel    string
	dev         bool
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "assetscan",
		Short: "Scan content roots into an asset registry snapshot",
		Long: `assetscan discovers package files under mounted content roots, reads their
headers into an asset registry, and saves, dumps or queries registry snapshots.

Configuration comes from ASSET_* environment variables; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringArrayVar(&a.roots, "root", nil, "content root as localDir=/Mount (repeatable, replaces ASSET_ROOTS)")
	flags.StringVar(&a.snapshot, "snapshot", "", "registry snapshot path (default ASSET_SNAPSHOT_PATH)")
	flags.StringVar(&a.optionsFile, "options", "", "serialization options file (.toml, .yaml, .json)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (default LOG_LEVEL)")
	flags.BoolVar(&a.dev, "dev", false, "colored console logging")

	root.AddCommand(newScanCommand(a))
	root.AddCommand(newDumpCommand(a))
	root.AddCommand(newQueryCommand(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(a.roots) > 0 {
		cfg.Scan.Roots = a.roots
	}
	if a.snapshot != "" {
		cfg.Registry.SnapshotPath = a.snapshot
	}
	if a.optionsFile != "" {
		cfg.Registry.SerializationOptions = a.optionsFile
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if cmd.Flags().Changed("dev") {
		cfg.Logging.Development = a.dev
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	a.logger, err = logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	return nil
}

// newRegistry builds a registry from the loaded configuration.
func (a *app) newRegistry(metrics *monitoring.Metrics) (*registry.Registry, error) {
	opts, err := registry.OptionsFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return registry.New(opts, a.logger.Component("registry"), metrics), nil
}

// loadSnapshot opens the configured snapshot into a fresh registry.
func (a *app) loadSnapshot() (*registry.Registry, error) {
	r, err := a.newRegistry(nil)
	if err != nil {
		return nil, err
	}
	if err := r.LoadSnapshot(a.cfg.Registry.SnapshotPath); err != nil {
		return nil, err
	}
	a.logger.Debug("Snapshot loaded",
		zap.String("path", a.cfg.Registry.SnapshotPath),
		zap.Int("assets", r.Stats().Assets))
	return r, nil
}
