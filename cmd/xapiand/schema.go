package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dubalu/xapiand-go/pkg/backend"
	"github.com/dubalu/xapiand-go/pkg/doc"
	"github.com/dubalu/xapiand-go/pkg/schema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [document.json]",
	Short: "Index a JSON document and print the resulting terms, values and schema tree",
	Long: `schema reads a JSON document, runs it through the field-specification
engine as a fresh PUT would, and prints the posting terms, value slots
and the schema tree the walk produced or extended. It is a debugging
tool for inspecting the dynamic-typing and accuracy-bucket rules
without standing up a full node.`,
	Args: cobra.ExactArgs(1),
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().String("persisted", "", "Path to a previously marshaled RESERVED_SCHEMA blob to feed as root")
}

func runSchema(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}
	object := doc.FromAny(decoded)

	var root *schema.Specification
	if path, _ := cmd.Flags().GetString("persisted"); path != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading persisted schema: %w", err)
		}
		persisted, err := schema.UnmarshalSchema(blob)
		if err != nil {
			return fmt.Errorf("parsing persisted schema: %w", err)
		}
		root = persisted.Root
	}

	document := backend.NewDocument()
	resolved, err := schema.Index(root, object, document, schema.Options{})
	if err != nil {
		return fmt.Errorf("indexing document: %w", err)
	}

	fmt.Println("terms:")
	for _, t := range document.Terms {
		kind := "weighted"
		if t.Boolean {
			kind = "boolean"
		}
		fmt.Printf("  %s%-30s wdf=%-3d %s\n", t.Prefix, t.Term, t.Wdf, kind)
	}

	fmt.Println("values:")
	for slot, blob := range document.Values {
		fmt.Printf("  slot=%-10d bytes=%d\n", slot, len(blob))
	}

	treeJSON, err := json.MarshalIndent(doc.ToAny(schema.ToValue(resolved)), "", "  ")
	if err != nil {
		return fmt.Errorf("rendering schema tree: %w", err)
	}
	fmt.Println("schema tree:")
	fmt.Println(string(treeJSON))

	return nil
}
