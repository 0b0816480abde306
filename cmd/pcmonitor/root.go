package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sweeney/pcmonitor/internal/config"
)

type options struct {
	configPath   string
	printState   bool
	httpAddr     string
	dryRunReboot bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "pcmonitor",
		Short:        "Drive a PC power switch over MQTT",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("http") {
				cfg.HTTP.Addr = opts.httpAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "/etc/pcmonitor/config.yaml", "configuration file (.yaml or .json)")
	flags.BoolVar(&opts.printState, "print-state", false, "print the power LED state and exit")
	flags.StringVar(&opts.httpAddr, "http", "", "HTTP status address, overrides http.addr (empty to disable)")
	flags.BoolVar(&opts.dryRunReboot, "dry-run-reboot", false, "log reboot commands instead of rebooting the host")
	return cmd
}
