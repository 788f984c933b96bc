package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/posetracking/config"
	"go.viam.com/posetracking/simulation"
)

// SimulateAction runs the configured scene and prints one row per step.
func SimulateAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := config.Read(c.String(flagConfig), logger)
	if err != nil {
		return err
	}
	if c.IsSet(flagSteps) {
		cfg.Simulation.Steps = c.Int(flagSteps)
	}
	if c.IsSet(flagSeed) {
		cfg.Simulation.Seed = c.Uint64(flagSeed)
	}
	if c.IsSet(flagDeltaTime) {
		cfg.Simulation.DeltaTime = c.Float64(flagDeltaTime)
	}
	if err := cfg.Simulation.Validate("simulation", cfg.BodyCount()); err != nil {
		return err
	}

	sim, err := simulation.New(cfg, cfg.Simulation.Seed, logger)
	if err != nil {
		return errors.Wrap(err, "could not build simulation")
	}
	steps, err := sim.Run(c.Context, cfg.Simulation.Steps)
	printSteps(c, steps)
	if err != nil {
		return err
	}
	if path := c.String(flagPlot); path != "" {
		if err := simulation.SavePlot(steps, path); err != nil {
			return err
		}
		printf(c.App.Writer, "wrote %s", path)
	}
	return nil
}

func printSteps(c *cli.Context, steps []simulation.StepStats) {
	w := table.NewWriter()
	w.SetOutputMirror(c.App.Writer)
	w.AppendHeader(table.Row{"step", "t (s)", "depth mean", "depth sd", "depth median", "occlusion", "renders", "poses"})
	for _, st := range steps {
		w.AppendRow(table.Row{
			st.Step,
			fmt.Sprintf("%.3f", st.Time),
			fmt.Sprintf("%.4f", st.DepthMean),
			fmt.Sprintf("%.4f", st.DepthStdDev),
			fmt.Sprintf("%.4f", st.DepthMedian),
			fmt.Sprintf("%.3f", st.OcclusionMean),
			st.Renders,
			fmt.Sprintf("%.3f", st.Poses),
		})
	}
	w.Render()
}

// ValidateAction reads a config file and reports whether it is valid.
func ValidateAction(c *cli.Context) error {
	cfg, err := config.Read(c.String(flagConfig), newLogger(c))
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s is valid: %d bodies, %dx%d camera",
		cfg.ConfigFilePath, cfg.BodyCount(), cfg.Camera.Width, cfg.Camera.Height)
	return nil
}
