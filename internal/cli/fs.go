package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/canto-cli/canto/internal/models"
	"github.com/canto-cli/canto/internal/ops"
	"github.com/spf13/cobra"
)

// The fs commands take catalog paths as arguments instead of a JSON stream,
// for scripting convenience. They share the same handlers as the pipeline.

var fsArgs models.Arguments

var mkcollCmd = &cobra.Command{
	Use:   "mkcoll <path>...",
	Short: "Create collections",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDirect(models.OpMkColl, args, func(p string) *models.Target {
			return &models.Target{Collection: p}
		})
	},
}

var rmcollCmd = &cobra.Command{
	Use:   "rmcoll <path>...",
	Short: "Remove collections",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDirect(models.OpRmColl, args, func(p string) *models.Target {
			return &models.Target{Collection: p}
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>...",
	Short: "Remove data objects",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDirect(models.OpRemove, args, splitTarget)
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <from> <to>",
	Short: "Move or rename a catalog path",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		moveArgs := fsArgs
		moveArgs.Path = args[1]
		c := initContext()
		dispatchDirect(c, models.OpMove, splitTarget(args[0]), &moveArgs)
	},
}

func init() {
	mkcollCmd.Flags().BoolVar(&fsArgs.Parents, "parents", false,
		"create missing parent collections")
	rmcollCmd.Flags().BoolVar(&fsArgs.Force, "force", false,
		"remove non-empty collections recursively")
	rmCmd.Flags().BoolVar(&fsArgs.Force, "force", false,
		"remove without moving to trash")
}

func splitTarget(p string) *models.Target {
	coll, leaf := models.SplitPath(p)
	return &models.Target{Collection: coll, DataObject: leaf}
}

func runDirect(op string, paths []string, toTarget func(string) *models.Target) {
	c := initContext()
	for _, p := range paths {
		dispatchDirect(c, op, toTarget(p), &fsArgs)
	}
}

// dispatchDirect applies one operation outside the pipeline, printing the
// result or error as JSON and exiting nonzero on failure.
func dispatchDirect(c *cmdContext, op string, target *models.Target, args *models.Arguments) {
	ctx := context.Background()
	if !c.Client.Connected() {
		if err := c.Client.Connect(ctx); err != nil {
			exitError("%v", err)
		}
	}

	d := ops.NewDispatcher(c.Client, c.Log)
	d.SetDefaultArguments(args)
	item := &models.WorkItem{Bare: target}
	result, itemErr := d.Dispatch(ctx, item, op)

	enc := json.NewEncoder(os.Stdout)
	if flagPretty {
		enc.SetIndent("", "  ")
	}
	if itemErr != nil {
		enc.Encode(map[string]interface{}{"error": itemErr})
		c.Client.Disconnect()
		os.Exit(1)
	}
	enc.Encode(result)
}
