// Package cli implements the canto command-line interface. Each command
// feeds the batch pipeline with an implicit operation (bare targets) or, for
// do, with none (envelopes name their own); the fs commands take paths
// directly for scripting convenience.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/config"
	"github.com/canto-cli/canto/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagEnv         string
	flagDB          string
	flagZone        string
	flagIdleTimeout time.Duration
	flagUnbuffered  bool
	flagPretty      bool
	flagVerbose     bool
	flagSilent      bool
)

// cmdContext holds common resources for CLI commands.
type cmdContext struct {
	Config *config.Config
	Log    zerolog.Logger
	Client catalog.Client
}

// initContext loads the environment and builds the catalog client. The
// client is not connected yet; the pipeline connects lazily on the first
// item that needs it.
func initContext() *cmdContext {
	cfg, err := config.Load(flagEnv)
	if err != nil {
		exitError("%v", err)
	}

	level := "warn"
	if flagVerbose {
		level = "debug"
	}
	if flagSilent {
		level = "error"
	}
	log := logging.New(logging.Config{Level: level, Output: os.Stderr})

	dbPath := flagDB
	if dbPath == "" {
		dbPath = cfg.Catalog.Path
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			exitError("cannot locate a catalog database: %v", err)
		}
		dbPath = filepath.Join(home, ".canto", "catalog.db")
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			exitError("cannot create catalog directory: %v", err)
		}
	}
	zone := flagZone
	if zone == "" {
		zone = cfg.Catalog.Zone
	}

	client := catalog.NewSQLite(catalog.SQLiteConfig{
		Path:      dbPath,
		Zone:      zone,
		ChunkSize: cfg.Catalog.ChunkSize,
		Logger:    log,
	})
	return &cmdContext{Config: cfg, Log: log, Client: client}
}

var rootCmd = &cobra.Command{
	Use:   "canto",
	Short: "JSON mediator for a catalog-backed hierarchical store",
	Long: `canto reads a stream of JSON documents describing catalog entities
(collections and data objects) and operations on them - list, search by
metadata, tag, change permissions, transfer - and emits one JSON result
per input document.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagEnv, "env", "", "client environment file (default $CANTO_ENV or ~/.canto/config)")
	pf.StringVar(&flagDB, "db", "", "embedded catalog database file")
	pf.StringVar(&flagZone, "zone", "", "zone to operate in")
	pf.DurationVar(&flagIdleTimeout, "idle-timeout", 0, "close the catalog connection after this idle period")
	pf.BoolVar(&flagUnbuffered, "unbuffered", false, "flush output after every item")
	pf.BoolVar(&flagPretty, "pretty", false, "pretty-print output JSON")
	pf.BoolVar(&flagVerbose, "verbose", false, "debug logging")
	pf.BoolVar(&flagSilent, "silent", false, "errors only")

	rootCmd.AddCommand(doCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(metaqueryCmd)
	rootCmd.AddCommand(metamodCmd)
	rootCmd.AddCommand(chmodCmd)
	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(mkcollCmd)
	rootCmd.AddCommand(rmcollCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(rmCmd)
}

// exitError prints an error and exits with the setup-failure code.
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
