// Command xapiand runs a single cluster node: the binary remote
// protocol server, an HTTP server for metrics, health and replication
// triggers, the Raft consensus drive loop, and the
// supporting CLI debugging tools (schema, endpoint, trixel) used to
// inspect the algebra the server relies on without standing one up.
package main

import (
	"fmt"
	"os"

	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/spf13/cobra"
)

// Version is set via -ldflags at build time; "dev" otherwise.
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "xapiand",
	Short:   "xapiand is a distributed document index node",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(endpointCmd)
	rootCmd.AddCommand(trixelCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}
