package cli

import (
	"github.com/canto-cli/canto/internal/models"
	"github.com/spf13/cobra"
)

var checksumArgs models.Arguments

var checksumCmd = &cobra.Command{
	Use:   "checksum [file]",
	Short: "Report, calculate, or verify data object checksums",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline(models.OpChecksum, &checksumArgs, args)
	},
}

func init() {
	f := checksumCmd.Flags()
	f.BoolVar(&checksumArgs.Calculate, "calculate", false,
		"force a fresh checksum calculation and registration")
	f.BoolVar(&checksumArgs.Verify, "verify", false,
		"verify content against the registered checksum")
}
