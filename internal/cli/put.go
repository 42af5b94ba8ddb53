package cli

import (
	"github.com/canto-cli/canto/internal/models"
	"github.com/spf13/cobra"
)

var putArgs models.Arguments

var putCmd = &cobra.Command{
	Use:   "put [file]",
	Short: "Upload local files as data objects",
	Long: `Read bare targets from a file or standard input and upload the local file
named by each target's directory/file fields to its catalog path. An
existing data object at the destination is overwritten, so repeated puts
of identical content are idempotent in effect.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline(models.OpPut, &putArgs, args)
	},
}

func init() {
	f := putCmd.Flags()
	f.BoolVar(&putArgs.Calculate, "calculate", false,
		"register a checksum after upload")
	f.BoolVar(&putArgs.Verify, "verify", false,
		"verify the registered checksum against the local file")
	f.BoolVar(&putArgs.SingleServer, "single-server", false,
		"force transfer through the connected server only")
}
