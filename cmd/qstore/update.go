package main

import (
	"fmt"

	"github.com/quaddb/quaddb/pkg/sparql/update"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update [sparql-update]",
	Short: "Run a SPARQL 1.1 Update request against the store",
	Long: `Execute one or more ; separated update operations (INSERT DATA,
DELETE DATA, DELETE/INSERT ... WHERE, CLEAR, DROP, ADD, MOVE, COPY) as a
single write transaction.

Examples:
  qstore update --dir ./data 'INSERT DATA { <http://ex/s> <http://ex/p> "v" . }'
  qstore update --dir ./data -f migration.ru`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	addDirFlag(updateCmd)
	updateCmd.Flags().StringP("file", "f", "", "Read the update request from this file instead of the positional argument")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	src, err := querySource(cmd, args)
	if err != nil {
		return err
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := update.Execute(store, src); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "update applied")
	return nil
}
