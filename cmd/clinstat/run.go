package main

import (
	"context"
	"fmt"

	"clinstat/adapters/viz"
	"clinstat/app"
	"clinstat/internal/config"
	"clinstat/internal/container"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		dataFile   string
		seed       int64
		size       int
		planFile   string
		keepGoing  bool
		parallel   bool
		noFallback bool
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full analysis and write the report",
		Long: `Load the dataset, run the descriptive, bivariate and multivariate analyses,
assemble the report, and write it in every configured format.

Example: clinstat run --data donnees_cliniques.xlsx --keep-going`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("data") {
				cfg.Data.File = dataFile
			}
			if flags.Changed("seed") {
				cfg.Data.SyntheticSeed = seed
			}
			if flags.Changed("size") {
				cfg.Data.SyntheticSize = size
			}
			if flags.Changed("plan") {
				cfg.Analysis.PlanFile = planFile
			}
			if flags.Changed("out") {
				cfg.Output.Dir = outDir
			}
			if keepGoing {
				cfg.Analysis.KeepGoing = true
			}
			if parallel {
				cfg.Analysis.Parallel = true
			}
			if noFallback {
				cfg.Data.SyntheticFallback = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			plan, err := config.LoadAnalysisPlan(cfg.Analysis.PlanFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, err := container.New(cfg, plan, logger)
			if err != nil {
				return err
			}
			if cfg.Database.Enabled() {
				db, err := container.Connect(ctx, cfg.Database.URL)
				if err != nil {
					return err
				}
				if err := c.InitWithDatabase(ctx, db); err != nil {
					db.Close()
					return err
				}
			}
			defer c.Shutdown(context.Background())

			res, err := c.Pipeline.Run(ctx, app.RunOptions{
				Data: app.DataOptions{
					File:              cfg.Data.File,
					SyntheticFallback: cfg.Data.SyntheticFallback,
					SyntheticSize:     cfg.Data.SyntheticSize,
					SyntheticSeed:     cfg.Data.SyntheticSeed,
				},
				KeepGoing: cfg.Analysis.KeepGoing,
				Parallel:  cfg.Analysis.Parallel,
			})
			if err != nil {
				return err
			}

			written, err := app.WriteOutputs(res.Dataset, res.Report, cfg.Output, plotConfig(cfg.Plot))
			if err != nil {
				return err
			}

			m := res.Report.Manifest()
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d rows, %d analyses, %d diagnostics\n",
				m.RunID, m.Rows, res.Report.Len(), len(m.Diagnostics))
			for _, d := range m.Diagnostics {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", d.String())
			}
			for _, p := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "Patient table (.csv or .xlsx); synthetic data when empty")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed of the synthetic dataset")
	cmd.Flags().IntVar(&size, "size", 500, "Row count of the synthetic dataset")
	cmd.Flags().StringVar(&planFile, "plan", "", "Analysis plan YAML overlaying the defaults")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Record analyzer failures as diagnostics instead of aborting")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Run the three analyzers concurrently")
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "Fail when the data file is missing instead of synthesizing")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory for the report files")

	return cmd
}

func plotConfig(p config.PlotConfig) viz.PlotConfig {
	return viz.PlotConfig{
		Style:   p.Style,
		Palette: p.Palette,
		Width:   p.Width,
		Height:  p.Height,
		DPI:     p.DPI,
	}
}
