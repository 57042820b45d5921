// Package cli provides the command-line interface for flightsup.
package cli

import (
	"github.com/spf13/cobra"

	"flightsup/internal/config"
	"flightsup/internal/logging"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logDir     string
}

// NewRootCommand creates the root command for flightsup.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "flightsup",
		Short: "Real-time flight-control supervisor",
		Long: `flightsup sequences flight directives (takeoff, hover, move, yaw,
land, exit) by priority and drives them tick by tick against a vehicle,
while a safety monitor and an obstacle-avoidance reactor watch the flight.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// errors are printed by main
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yml", "YAML configuration file; missing file uses defaults")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logDir, "log-dir", "", "override directory for the rotating log file")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newMissionCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	return root
}

// load reads the config file and applies the persistent overrides.
func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.logLevel != "" {
		if _, err := logging.ParseLevel(o.logLevel); err != nil {
			return cfg, err
		}
		cfg.Log.Level = o.logLevel
	}
	if o.logDir != "" {
		cfg.Log.Dir = o.logDir
	}
	return cfg, nil
}
