package cli

import (
	"context"
	"io"
	"os"

	"github.com/canto-cli/canto/internal/models"
	"github.com/canto-cli/canto/internal/pipeline"
	"github.com/fatih/color"
)

// runPipeline streams work items from a file argument or standard input
// through the batch pipeline, then exits with the contract's code: 0 all
// good, 1 connection or stream failure, the signal's code on signal-driven
// shutdown, and a generic nonzero when some items failed but the connection
// held.
func runPipeline(implicitOp string, defaults *models.Arguments, args []string) {
	c := initContext()

	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitError("%v", err)
		}
		defer f.Close()
		in = f
	}

	idle := flagIdleTimeout
	if idle == 0 {
		cfgIdle, err := c.Config.IdleTimeout()
		if err != nil {
			exitError("%v", err)
		}
		idle = cfgIdle
	}

	runner, err := pipeline.NewRunner(pipeline.Config{
		Client:      c.Client,
		Logger:      c.Log,
		IdleTimeout: idle,
		ImplicitOp:  implicitOp,
		DefaultArgs: defaults,
		Pretty:      flagPretty,
		Unbuffered:  flagUnbuffered,
	})
	if err != nil {
		exitError("%v", err)
	}

	sig := pipeline.NotifySignals()
	stats, err := runner.Run(context.Background(), in, os.Stdout, sig)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(pipeline.ExitConnection)
	}
	if stats.SignalCode != 0 {
		os.Exit(stats.SignalCode)
	}
	if stats.Errors > 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr,
			"%d of %d items failed\n", stats.Errors, stats.Items)
		os.Exit(pipeline.ExitItemErrors)
	}
}
