package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wdm0006/smudge/pkg/manifest"
	"github.com/wdm0006/smudge/pkg/stage"
)

func assetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "List registered assets in run order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := stage.Definitions(a.options(nil, nil))
			if err != nil {
				return err
			}
			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetHeader([]string{"asset", "group", "deps", "description"})
			tw.SetAutoWrapText(false)
			for _, name := range d.Order() {
				as, _ := d.Lookup(name)
				tw.Append([]string{as.Name, as.Group, strings.Join(as.Deps, ","), as.Description})
			}
			tw.Render()
			return nil
		},
	}
}

func runsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded injection runs, or the changed cells of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.ManifestPath == "" {
				return fmt.Errorf("manifest_path is not configured")
			}
			ctx := cmd.Context()
			store, err := manifest.Open(ctx, a.cfg.ManifestPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetAutoWrapText(false)
			if len(args) == 0 {
				runs, err := store.Runs(ctx)
				if err != nil {
					return err
				}
				tw.SetHeader([]string{"run", "started", "catalog", "rows", "defects", "output"})
				for _, r := range runs {
					tw.Append([]string{r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Catalog,
						fmt.Sprint(r.Rows), fmt.Sprint(r.Defects), r.Output})
				}
				tw.Render()
				return nil
			}

			run, err := store.Run(ctx, args[0])
			if err != nil {
				return err
			}
			recs, err := store.Records(ctx, run.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s -> %s\n", color.New(color.Bold).Sprint(run.ID), run.Catalog, run.Source, run.Output)
			tw.SetHeader([]string{"step", "category", "column", "row id", "before", "after"})
			for _, r := range recs {
				tw.Append([]string{fmt.Sprint(r.Step), r.Category, r.Column, fmt.Sprint(r.RowID),
					nullable(r.Before, r.BeforeNull), nullable(r.After, r.AfterNull)})
			}
			tw.Render()
			return nil
		},
	}
}

func nullable(s string, null bool) string {
	if null {
		return color.New(color.Faint).Sprint("null")
	}
	return s
}
