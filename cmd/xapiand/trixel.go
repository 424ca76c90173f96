package main

import (
	"fmt"
	"strings"

	"github.com/dubalu/xapiand-go/pkg/htm"
	"github.com/spf13/cobra"
)

var trixelCmd = &cobra.Command{
	Use:   "trixel <and|or|xor> --a 0,1 --b 2,3",
	Short: "Evaluate the HTM trixel-name set algebra without a live cover generator",
	Long: `trixel exercises the prefix-aware set operations a geo field's cover
lists are combined with (AND/OR/XOR), or reports the max-level id
range each name in --a maps to for the "range" operation. Operand
lists are comma-separated trixel names.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrixel,
}

func init() {
	trixelCmd.Flags().String("a", "", "First comma-separated trixel name list")
	trixelCmd.Flags().String("b", "", "Second comma-separated trixel name list (AND/OR/XOR only)")
}

func runTrixel(cmd *cobra.Command, args []string) error {
	op := args[0]
	rawA, _ := cmd.Flags().GetString("a")
	a := splitNames(rawA)

	if op == "range" {
		for _, name := range a {
			r := htm.IDRangeOf(name)
			fmt.Printf("%-12s start=%d end=%d\n", name, r.Start, r.End)
		}
		return nil
	}

	rawB, _ := cmd.Flags().GetString("b")
	b := splitNames(rawB)

	var result []string
	switch op {
	case "and":
		result = htm.AND(a, b)
	case "or":
		result = htm.OR(a, b)
	case "xor":
		result = htm.XOR(a, b)
	default:
		return fmt.Errorf("unknown operation %q (want and, or, xor, range)", op)
	}

	fmt.Println(strings.Join(result, ","))
	return nil
}

func splitNames(raw string) []string {
	var names []string
	for _, n := range strings.Split(raw, ",") {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}
