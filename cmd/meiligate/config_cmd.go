package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/meiligate/internal/config"
)

// resolvedConfig is what the config command prints: the loaded file after
// defaults plus the Meilisearch connection taken from the environment.
type resolvedConfig struct {
	Env         string        `yaml:"env"`
	Meilisearch string        `yaml:"meilisearch_connection"`
	Config      config.Config `yaml:"config"`
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envName)
			if err != nil {
				return err
			}
			out := resolvedConfig{Env: envName, Config: cfg}

			environ, err := config.Environ(cfg.Meilisearch.DotenvPath)
			if err != nil {
				return err
			}
			if conn, err := config.ResolveConnection(environ); err != nil {
				out.Meilisearch = "unresolved: " + err.Error()
			} else {
				out.Meilisearch = conn.Redacted()
			}

			for i := range out.Config.Auth.APIKeys {
				out.Config.Auth.APIKeys[i] = "***"
			}

			data, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
