package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/morphd/pkg/config"
	"github.com/arthur-debert/morphd/pkg/daemon"
	"github.com/arthur-debert/morphd/pkg/logging"
)

var watchRoots []string

func init() {
	watchCmd.Flags().StringSliceVar(&watchRoots, "root", nil,
		"Directory to watch (repeatable, overrides the configured roots)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch directories and convert bang-renamed files",
	Long: `Watch runs the conversion daemon in the foreground. Renaming a file
to name.!ext converts it to ext with version history; name.!!ext
converts without saving history. SIGINT or SIGTERM stops the daemon
after in-flight conversions finish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.watch")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if len(watchRoots) > 0 {
			cfg.Watch.Roots = watchRoots
		}

		d, err := daemon.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info().Strs("roots", cfg.Watch.Roots).Msg("Starting watch")
		return d.Run(ctx)
	},
}
