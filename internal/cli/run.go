package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"flightsup/internal/app"
	"flightsup/internal/config"
	"flightsup/internal/directive"
	"flightsup/internal/logging"
)

type runOptions struct {
	sim       bool
	listen    string
	codec     string
	noConsole bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fly interactively from the console and the network channel",
		Long: `Start the supervisor and accept directives from the operator console
and, when --listen is set, from UDP datagrams.

Console commands:
  takeoff <altitude>
  hover <duration> [priority]
  move <direction> <duration> [priority]
  yaw <heading> [priority]
  land [priority]
  exit

Directions are up, down, left, right, forward and backward. Priorities are
high, medium (med) and low. Interrupting the process while airborne lands
the vehicle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Channel.Listen = opts.listen
			}
			if cmd.Flags().Changed("codec") {
				cfg.Channel.Codec = opts.codec
			}
			if _, err := directive.CodecFor(cfg.Channel.Codec); err != nil {
				return err
			}

			appOpts := app.Options{Config: cfg, Sim: opts.sim}
			if !opts.noConsole {
				appOpts.In = cmd.InOrStdin()
				appOpts.Out = cmd.OutOrStdout()
				fmt.Fprintln(cmd.OutOrStdout(), `flightsup ready; type "help" for commands`)
			}
			return fly(cmd.Context(), cfg, appOpts)
		},
	}

	cmd.Flags().BoolVar(&opts.sim, "sim", false, "fly the built-in simulator")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "UDP address for network directives, e.g. 127.0.0.1:14555")
	cmd.Flags().StringVar(&opts.codec, "codec", "json", "network directive codec (json, msgpack)")
	cmd.Flags().BoolVar(&opts.noConsole, "no-console", false, "do not read directives from stdin")
	return cmd
}

// fly builds the logger and the supervisor and runs until the flight ends
// or the process is interrupted.
func fly(ctx context.Context, cfg config.Config, opts app.Options) error {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	if log.LogFile != "" {
		log.Info("logging to file", "path", log.LogFile)
	}

	sup, err := app.New(opts, log)
	if errors.Is(err, app.ErrNoVehicle) {
		return fmt.Errorf("%w (run with --sim)", err)
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return sup.Run(ctx)
}
