package cli

import (
	"github.com/canto-cli/canto/internal/models"
	"github.com/spf13/cobra"
)

var listArgs models.Arguments

var listCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List catalog paths given as bare JSON targets",
	Long: `Read bare targets ({"collection": ..., "data_object": ...}) from a file or
standard input and report each path, optionally enriched with access
control lists, metadata, timestamps, size, checksum, or collection
contents.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline(models.OpList, &listArgs, args)
	},
}

func init() {
	f := listCmd.Flags()
	f.BoolVar(&listArgs.ACL, "acl", false, "include access control lists")
	f.BoolVar(&listArgs.AVU, "avu", false, "include metadata AVUs")
	f.BoolVar(&listArgs.Timestamp, "timestamp", false, "include timestamps")
	f.BoolVar(&listArgs.Size, "size", false, "include data object sizes")
	f.BoolVar(&listArgs.Checksum, "checksum", false, "include registered checksums")
	f.BoolVar(&listArgs.Contents, "contents", false, "include collection contents")
}
