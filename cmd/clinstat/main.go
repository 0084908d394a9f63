package main

import (
	"fmt"
	"os"

	"clinstat/internal"
	"clinstat/internal/config"
	"clinstat/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env is optional; the environment wins over it
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "clinstat",
		Short:         "Descriptive, bivariate and regression analysis of a clinical patient table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newSynthCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "clinstat: [%s] %v\n", errors.GetCode(err), err)
		os.Exit(1)
	}
}

// loadConfig reads the environment configuration and builds the process logger
func loadConfig() (*config.Config, *internal.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewLoggerTo(os.Stderr, internal.ParseLogLevel(cfg.Log.Level), cfg.Log.Format == "json")
	return cfg, logger, nil
}
