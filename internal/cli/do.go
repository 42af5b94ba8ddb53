package cli

import (
	"github.com/spf13/cobra"
)

var doCmd = &cobra.Command{
	Use:   "do [file]",
	Short: "Process a stream of operation envelopes",
	Long: `Read operation envelopes ({"operation": ..., "target": ..., "arguments": ...})
from a file or standard input and apply each to the catalog. One JSON value
is emitted per envelope, carrying the result or an embedded error.

Example:
  echo '{"operation":"list","target":{"collection":"/tempZone/home"}}' | canto do`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline("", nil, args)
	},
}
