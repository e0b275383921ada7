package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wdm0006/smudge/pkg/asset"
	"github.com/wdm0006/smudge/pkg/metrics"
	"github.com/wdm0006/smudge/pkg/publish"
	"github.com/wdm0006/smudge/pkg/stage"
)

type runFlags struct {
	catalogPath string
	only        []string
	noPublish   bool
}

func (f *runFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.catalogPath, "catalog", "", "defect catalog file (defaults to catalog_path or the built-in catalog)")
	cmd.Flags().StringSliceVar(&f.only, "only", nil, "apply only these defect categories")
	cmd.Flags().BoolVar(&f.noPublish, "no-publish", false, "skip publishing even if a publish driver is configured")
}

func ingestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the raw dataset and write the prepared copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.materialize(cmd.Context(), cmd.OutOrStdout(), runFlags{noPublish: true}, stage.AssetRaw)
		},
	}
	return cmd
}

func injectCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Apply the defect catalog to the prepared dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.materialize(cmd.Context(), cmd.OutOrStdout(), f, stage.AssetActivity)
		},
	}
	f.bind(cmd)
	return cmd
}

func runCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [asset...]",
		Short: "Materialize assets in dependency order (all of them by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.materialize(cmd.Context(), cmd.OutOrStdout(), f, args...)
		},
	}
	f.bind(cmd)
	return cmd
}

// materialize runs the selected assets, then writes metrics and publishes
// outputs when configured. Metrics are written even if a stage failed.
func (a *app) materialize(ctx context.Context, w io.Writer, f runFlags, names ...string) error {
	cat, err := a.catalog(f.catalogPath, f.only)
	if err != nil {
		return err
	}
	m := metrics.New()
	d, err := stage.Definitions(a.options(cat, m))
	if err != nil {
		return err
	}
	d.OnMaterialized(func(mat asset.Materialization) { printMaterialization(w, mat) })

	_, runErr := d.Materialize(ctx, names...)
	if a.cfg.MetricsTextfile != "" {
		if err := m.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
			a.logger.Error("metrics textfile", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}
	if f.noPublish {
		return nil
	}
	return a.publish(ctx, w)
}

func (a *app) publish(ctx context.Context, w io.Writer) error {
	p, err := publish.Open(ctx, a.cfg.Publish)
	if err != nil || p == nil {
		return err
	}
	paths := []string{a.cfg.PreparedPath, a.cfg.ActivityPath, a.cfg.ManifestPath}
	keys, err := publish.All(ctx, p, a.cfg.Publish.Prefix, paths, a.logger.Named("publish"))
	for _, k := range keys {
		fmt.Fprintf(w, "%s %s\n", color.New(color.FgCyan).Sprint("published"), k)
	}
	return err
}

func printMaterialization(w io.Writer, m asset.Materialization) {
	status := color.New(color.FgGreen).Sprint("OK  ")
	if m.Err != nil {
		status = color.New(color.FgRed).Sprint("FAIL")
	}
	fmt.Fprintf(w, "%s %s [%s] %s\n", status, m.Asset, m.Group, m.Duration.Round(time.Millisecond))
	if m.Err != nil {
		fmt.Fprintf(w, "     %v\n", m.Err)
		return
	}
	md := m.Result.Metadata
	for _, k := range md.Keys() {
		v := md[k]
		switch {
		case v.Kind == asset.MetaMarkdown, strings.Contains(v.Text, "\n"):
			fmt.Fprintf(w, "     %s:\n", color.New(color.Faint).Sprint(k))
			for _, line := range strings.Split(strings.TrimRight(v.String(), "\n"), "\n") {
				fmt.Fprintf(w, "       %s\n", line)
			}
		case v.String() == "":
		default:
			fmt.Fprintf(w, "     %s: %s\n", color.New(color.Faint).Sprint(k), v)
		}
	}
}
