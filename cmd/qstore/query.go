package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/quaddb/quaddb/pkg/sparql/engine"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [sparql]",
	Short: "Run a SPARQL query against the store",
	Long: `Execute a SELECT, ASK, CONSTRUCT, or DESCRIBE query and print the
result. The query may be given inline or loaded from a file with -f.

Examples:
  qstore query --dir ./data 'SELECT * WHERE { ?s ?p ?o }'
  qstore query --dir ./data -f report.rq`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	addDirFlag(queryCmd)
	queryCmd.Flags().StringP("file", "f", "", "Read the query from this file instead of the positional argument")
}

func runQuery(cmd *cobra.Command, args []string) error {
	src, err := querySource(cmd, args)
	if err != nil {
		return err
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := engine.Execute(store, src)
	if err != nil {
		return err
	}
	printResult(cmd, res)
	return nil
}

func querySource(cmd *cobra.Command, args []string) (string, error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read query file %s: %w", file, err)
		}
		return string(data), nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("a query is required: pass it as an argument or with -f")
	}
	return args[0], nil
}

func printResult(cmd *cobra.Command, res *engine.Result) {
	out := cmd.OutOrStdout()
	switch res.Kind {
	case lang.KindAsk:
		fmt.Fprintln(out, res.Boolean)
	case lang.KindConstruct, lang.KindDescribe:
		for _, q := range res.Quads {
			fmt.Fprintln(out, q.String())
		}
	default: // lang.KindSelect
		fmt.Fprintln(out, strings.Join(res.Vars, "\t"))
		for _, row := range res.Rows {
			cells := make([]string, len(row))
			for i, c := range row {
				if t, ok := res.Term(c); ok {
					cells[i] = t.String()
				} else {
					cells[i] = ""
				}
			}
			fmt.Fprintln(out, strings.Join(cells, "\t"))
		}
	}
}
