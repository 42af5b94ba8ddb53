package cli

import (
	"github.com/canto-cli/canto/internal/models"
	"github.com/spf13/cobra"
)

var metaqueryArgs models.Arguments

var metaqueryCmd = &cobra.Command{
	Use:   "metaquery [file]",
	Short: "Search the catalog by metadata",
	Long: `Read search specifications from a file or standard input and report the
collections and data objects whose metadata matches. Each specification
must carry an avus array; access and timestamp clauses and a scoping
collection path are optional.

Example:
  echo '{"avus":[{"attribute":"project","value":"alpha"}]}' | canto metaquery`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline(models.OpMetaQuery, &metaqueryArgs, args)
	},
}

func init() {
	f := metaqueryCmd.Flags()
	f.BoolVar(&metaqueryArgs.ACL, "acl", false, "include access control lists")
	f.BoolVar(&metaqueryArgs.AVU, "avu", false, "include metadata AVUs")
	f.BoolVar(&metaqueryArgs.Timestamp, "timestamp", false, "include timestamps")
	f.BoolVar(&metaqueryArgs.Size, "size", false, "include data object sizes")
	f.BoolVar(&metaqueryArgs.Checksum, "checksum", false, "include registered checksums")
	f.StringVar(&metaqueryArgs.Zone, "query-zone", "", "restrict the search to a zone")
}
