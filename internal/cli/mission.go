package cli

import (
	"github.com/spf13/cobra"

	"flightsup/internal/app"
	"flightsup/internal/directive"
	"flightsup/internal/sched"
)

func newMissionCommand(root *rootOptions) *cobra.Command {
	var sim bool

	cmd := &cobra.Command{
		Use:   "mission <file.yaml>",
		Short: "Fly a scripted list of directives and stop when done",
		Long: `Queue every directive of a mission file in order and fly until the
queue drains on the ground.

Example mission:

  name: hop
  directives:
    - {command: takeoff, altitude: 1}
    - {command: move, direction: forward, duration: 2}
    - {command: hover, duration: 3}
    - {command: land}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := directive.LoadMission(args[0])
			if err != nil {
				return err
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			cfg.Scheduler.StopWhenIdle = true
			// evict-top would drop directives of equal priority
			cfg.Scheduler.Preemption = sched.InsertAhead.String()

			return fly(cmd.Context(), cfg, app.Options{Config: cfg, Sim: sim, Mission: &m})
		},
	}

	cmd.Flags().BoolVar(&sim, "sim", false, "fly the built-in simulator")
	return cmd
}
