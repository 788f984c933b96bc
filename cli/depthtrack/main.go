// Package main is the depthtrack command itself.
package main

import (
	"os"

	"go.viam.com/posetracking/cli"
	"go.viam.com/posetracking/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.Global().Errorw("depthtrack failed", "error", err)
		os.Exit(1)
	}
}
