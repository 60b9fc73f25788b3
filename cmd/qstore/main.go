// Command qstore is a thin demonstration CLI wrapping the embeddable quad
// store engine: load RDF documents, run SPARQL queries/updates, and
// trigger an offline compaction. It exists to exercise the library end to
// end; it is not itself a core component, just an external collaborator
// against the store's public API.
package main

import (
	"fmt"
	"os"

	"github.com/quaddb/quaddb/pkg/qlog"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "qstore",
	Short: "qstore - an embeddable bitemporal RDF quad store",
	Long: `qstore is a command-line wrapper around the bitemporal quad store
engine: a term dictionary, six B+Tree index orderings, a write-ahead log,
and a SPARQL 1.1 query/update executor, all addressable against a single
on-disk store directory.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.SetVersionTemplate(fmt.Sprintf("qstore version %s\nCommit: %s\n", Version, Commit))

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(compactCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	qlog.Init(qlog.Config{
		Level:      qlog.Level(logLevel),
		JSONOutput: logJSON,
	})
}
