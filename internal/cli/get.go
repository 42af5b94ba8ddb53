package cli

import (
	"github.com/canto-cli/canto/internal/models"
	"github.com/spf13/cobra"
)

var getArgs models.Arguments

var getCmd = &cobra.Command{
	Use:   "get [file]",
	Short: "Fetch data object content",
	Long: `Read bare targets from a file or standard input and fetch each data
object. By default content is ingested as JSON and embedded in the result;
--raw embeds it as an opaque string, and --save writes it to the local file
named by the target's directory/file fields instead.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline(models.OpGet, &getArgs, args)
	},
}

func init() {
	f := getCmd.Flags()
	f.BoolVar(&getArgs.Save, "save", false, "save content to a local file")
	f.BoolVar(&getArgs.Raw, "raw", false, "embed content as an opaque string")
}
