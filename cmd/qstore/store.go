package main

import (
	"github.com/quaddb/quaddb/pkg/qconfig"
	"github.com/quaddb/quaddb/pkg/qstore"
	"github.com/spf13/cobra"
)

// openStore resolves the --dir flag (falling back to qconfig.Default's
// data directory) and opens the store there, creating it if absent.
func openStore(cmd *cobra.Command) (*qstore.Store, error) {
	dir, _ := cmd.Flags().GetString("dir")
	cfg := qconfig.Default()
	if dir != "" {
		cfg.DataDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return qstore.Open(cfg)
}

func addDirFlag(cmd *cobra.Command) {
	cmd.Flags().String("dir", "", "Store directory (default: ./data)")
}
