package cli

import (
	"github.com/canto-cli/canto/internal/models"
	"github.com/spf13/cobra"
)

var metamodArgs models.Arguments

var metamodCmd = &cobra.Command{
	Use:   "metamod [file]",
	Short: "Add or remove metadata on catalog paths",
	Long: `Read bare targets carrying avus arrays from a file or standard input and
apply the chosen metadata operation to each path.

Example:
  echo '{"collection":"/tempZone/home/x","avus":[{"attribute":"a","value":"1"}]}' \
    | canto metamod --operation add`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline(models.OpMetaMod, &metamodArgs, args)
	},
}

func init() {
	metamodCmd.Flags().StringVar(&metamodArgs.Operation, "operation", models.MetaAdd,
		"metadata operation: add, rem, or supersede")
}
