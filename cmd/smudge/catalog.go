package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wdm0006/smudge/pkg/catalog"
	"github.com/wdm0006/smudge/pkg/io/structio"
)

func catalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect defect catalogs",
	}
	cmd.AddCommand(catalogShowCmd(a), catalogValidateCmd(a))
	return cmd
}

func catalogShowCmd(a *app) *cobra.Command {
	var (
		format string
		only   []string
	)
	cmd := &cobra.Command{
		Use:   "show [file]",
		Short: "Print a catalog (the configured or built-in one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			cat, err := a.catalog(path, only)
			if err != nil {
				return err
			}
			return cat.Encode(cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", structio.YAML, "output format: yaml, toml or json")
	cmd.Flags().StringSliceVar(&only, "only", nil, "show only these categories")
	return cmd
}

func catalogValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check catalog files for unknown kinds and missing parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cat, err := a.catalog("", nil)
				if err != nil {
					return err
				}
				if err := cat.Validate(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d defects)\n", color.New(color.FgGreen).Sprint("valid"), cat.Name, len(cat.Defects))
				return nil
			}
			var failed int
			for _, p := range args {
				cat, err := catalog.Load(p)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n      %v\n", color.New(color.FgRed).Sprint("invalid"), p, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d defects, %d categories)\n",
					color.New(color.FgGreen).Sprint("valid"), p, len(cat.Defects), len(cat.Categories()))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d catalogs invalid", failed, len(args))
			}
			return nil
		},
	}
}
