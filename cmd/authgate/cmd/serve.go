package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgellow/authgate/internal"
	"github.com/dgellow/authgate/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the login gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log.LogInfoWithFields("main", "Starting authgate", map[string]any{
			"version": BuildVersion,
			"env":     cfg.Env,
		})

		app, err := internal.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
