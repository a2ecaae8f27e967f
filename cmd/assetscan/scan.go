package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/assetregistry/internal/infrastructure/monitoring"
)

type scanFlags struct {
	synchronous bool
	noDeps      bool
	cacheMode   string
	timeout     time.Duration
	metricsOut  string
	noSave      bool
}

func newScanCommand(a *app) *cobra.Command {
	f := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Gather every package under the content roots and save a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, a, f)
		},
	}
	cmd.Flags().BoolVar(&f.synchronous, "sync", false, "gather on the calling goroutine")
	cmd.Flags().BoolVar(&f.noDeps, "no-deps", false, "skip dependency gathering")
	cmd.Flags().StringVar(&f.cacheMode, "cache-mode", "", "none, per-input-hash or monolithic (default ASSET_CACHE_MODE)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "abort the scan after this long")
	cmd.Flags().StringVar(&f.metricsOut, "metrics-out", "", "write prometheus metrics to this file when done")
	cmd.Flags().BoolVar(&f.noSave, "no-save", false, "do not write the snapshot")
	return cmd
}

func runScan(cmd *cobra.Command, a *app, f *scanFlags) error {
	if len(a.cfg.Scan.Roots) == 0 && len(a.cfg.Scan.Files) == 0 {
		return fmt.Errorf("no content roots: pass --root or set ASSET_ROOTS")
	}
	if cmd.Flags().Changed("sync") {
		a.cfg.Scan.Synchronous = f.synchronous
	}
	if f.noDeps {
		a.cfg.Scan.GatherDependencies = false
	}
	if f.cacheMode != "" {
		a.cfg.Cache.Mode = f.cacheMode
		if err := a.cfg.Validate(); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	r, err := a.newRegistry(monitoring.NewMetrics(reg))
	if err != nil {
		return err
	}
	defer r.Close()

	ctx := cmd.Context()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := r.SearchAllAssets(ctx); err != nil {
		return err
	}
	// Custom versions are fixed for the life of the process, so files held
	// for a retry get their final attempt right away.
	r.SetInitialPluginsLoaded()
	if err := r.WaitForCompletion(ctx); err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}

	stats := r.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "  assets:        %d\n", stats.Assets)
	fmt.Fprintf(out, "  depends nodes: %d\n", stats.DependsNodes)
	fmt.Fprintf(out, "  package data:  %d\n", stats.PackageData)
	fmt.Fprintf(out, "  paths:         %d\n", stats.Paths)
	fmt.Fprintf(out, "  parsed:        %d (cache hits %d, failed %d)\n", stats.Gather.Parsed, stats.Gather.CacheHits, stats.Gather.Failed)
	if cooked := r.GetCookedPackagesWithoutAssetData(); len(cooked) > 0 {
		fmt.Fprintf(out, "  cooked packages without asset data: %d\n", len(cooked))
	}

	if !f.noSave {
		if err := r.SaveSnapshot(a.cfg.Registry.SnapshotPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Snapshot written to %s\n", a.cfg.Registry.SnapshotPath)
	}
	if f.metricsOut != "" {
		if err := prometheus.WriteToTextfile(f.metricsOut, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
