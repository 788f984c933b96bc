// Package cli contains the depthtrack command line interface.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/posetracking/logging"
)

const (
	// Flags.
	flagDebug     = "debug"
	flagConfig    = "config"
	flagSteps     = "steps"
	flagSeed      = "seed"
	flagDeltaTime = "dt"
	flagPlot      = "plot"
)

var configFlag = &cli.StringFlag{
	Name:     flagConfig,
	Aliases:  []string{"c"},
	Required: true,
	Usage:    "load configuration from `FILE`",
}

var app = &cli.App{
	Name:            "depthtrack",
	Usage:           "run depth based rigid body tracking models",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "simulate",
			Usage: "move the configured bodies and print statistics of the simulated depth images",
			Flags: []cli.Flag{
				configFlag,
				&cli.IntFlag{
					Name:  flagSteps,
					Usage: "number of steps, overrides the config",
				},
				&cli.Uint64Flag{
					Name:  flagSeed,
					Usage: "noise seed, overrides the config",
				},
				&cli.Float64Flag{
					Name:  flagDeltaTime,
					Usage: "time step in seconds, overrides the config",
				},
				&cli.StringFlag{
					Name:  flagPlot,
					Usage: "save a plot of the depth statistics to `FILE` (.png, .svg, .pdf)",
				},
			},
			Action: SimulateAction,
		},
		{
			Name:   "validate",
			Usage:  "validate a config file",
			Flags:  []cli.Flag{configFlag},
			Action: ValidateAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

func newLogger(c *cli.Context) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("depthtrack")
	}
	return logging.NewLogger("depthtrack")
}

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
