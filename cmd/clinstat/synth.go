package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"clinstat/internal/errors"
	"clinstat/internal/testkit"

	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	var (
		size int
		seed int64
		out  string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic patient table",
		Long: `Generate a reproducible synthetic patient table and write it as CSV or XLSX.

Example: clinstat synth --size 500 --seed 42 --out donnees_cliniques.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := testkit.GenerateClinicalDataset(testkit.ClinicalGeneratorConfig{Size: size, Seed: seed})
			if err != nil {
				return err
			}

			switch strings.ToLower(filepath.Ext(out)) {
			case ".csv":
				err = testkit.WriteCSV(out, ds)
			case ".xlsx":
				err = testkit.WriteXLSX(out, ds)
			default:
				return errors.InvalidInput(fmt.Sprintf("--out must end in .csv or .xlsx, got %q", out))
			}
			if err != nil {
				return errors.Wrapf(err, "write %s", out)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s (dataset %s)\n", ds.Len(), out, ds.Fingerprint().Short())
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 500, "Number of patients")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&out, "out", "donnees_cliniques.xlsx", "Output file (.csv or .xlsx)")

	return cmd
}
