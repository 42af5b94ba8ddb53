package cli

import (
	"github.com/canto-cli/canto/internal/models"
	"github.com/spf13/cobra"
)

var chmodArgs models.Arguments

var chmodCmd = &cobra.Command{
	Use:   "chmod [file]",
	Short: "Change permissions on catalog paths",
	Long: `Read bare targets carrying access arrays from a file or standard input and
apply each access clause ({"owner": ..., "level": null|read|write|own}) to
its path.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline(models.OpChmod, &chmodArgs, args)
	},
}

func init() {
	chmodCmd.Flags().BoolVar(&chmodArgs.Recurse, "recurse", false,
		"apply to the whole collection subtree")
}
