package main

import (
	"context"
	"os/signal"
	"syscall"

	"clinstat/internal/api"
	"clinstat/internal/config"
	"clinstat/internal/container"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored reports and synthetic runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			plan, err := config.LoadAnalysisPlan(cfg.Analysis.PlanFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

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

			server := api.NewServer(c.Store, c.Pipeline, logger)
			return server.ListenAndServe(ctx, ":"+cfg.Server.Port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "8080", "Listen port")
	return cmd
}
