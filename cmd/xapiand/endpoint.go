package main

import (
	"fmt"
	"os"

	"github.com/dubalu/xapiand-go/pkg/endpoint"
	"github.com/spf13/cobra"
)

var endpointCmd = &cobra.Command{
	Use:   "endpoint [uri]",
	Short: "Parse and normalize an endpoint URI",
	Args:  cobra.ExactArgs(1),
	RunE:  runEndpoint,
}

func init() {
	endpointCmd.Flags().String("base", "/", "Base path used to resolve a relative URI")
}

func runEndpoint(cmd *cobra.Command, args []string) error {
	base, _ := cmd.Flags().GetString("base")
	e := endpoint.Parse(args[0], base)

	fmt.Printf("protocol: %s\n", e.Protocol)
	if e.User != "" {
		fmt.Printf("user:     %s\n", e.User)
	}
	fmt.Printf("host:     %s\n", e.Host)
	fmt.Printf("port:     %d\n", e.Port)
	fmt.Printf("path:     %s\n", e.Path)
	if e.Search != "" {
		fmt.Printf("search:   %s\n", e.Search)
	}
	fmt.Printf("hash:     %d\n", e.Hash())
	if hostname, err := os.Hostname(); err == nil {
		fmt.Printf("local:    %v (against %s)\n", e.IsLocal(hostname), hostname)
	}
	fmt.Printf("string:   %s\n", e.AsString())
	return nil
}
