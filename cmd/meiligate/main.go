package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/meiligate/internal/config"
	"github.com/kailas-cloud/meiligate/internal/version"
)

var envName string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "meiligate",
		Short: "HTTP gateway in front of Meilisearch",
		Long: `meiligate exposes index, document, search, settings and key management
routes and forwards them to a Meilisearch instance.

The Meilisearch endpoint is read from MEILISEARCH_URL or MEILI_HTTP_ADDR and
the key from MEILI_MASTER_KEY or MEILISEARCH_API_KEY (a .env file is honoured).`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		// Without a subcommand the gateway serves.
		RunE: runServe,
	}
	root.PersistentFlags().StringVar(&envName, "env", config.GetEnv(),
		"Config environment: selects config/<env>.yaml and the log format")

	root.AddCommand(newServeCmd(), newVersionCmd(), newConfigCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
