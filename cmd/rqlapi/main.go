package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   `rqlapi`,
		Short: `RQL filters over a JSON:API resource`,
		Long: `rqlapi serves a demo "articles" collection as JSON:API, filtered with RQL
query strings, and translates RQL queries to SQL for inspection.

Settings are read from RQLAPI_* environment variables and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSqlCmd())
	return cmd
}
