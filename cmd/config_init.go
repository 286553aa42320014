package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml with the current effective settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("output")
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("config init: %s already exists (use --force to overwrite)", path)
			}
		}

		// cfg already carries defaults merged with any existing config file
		// and environment overrides, so the written file reflects the
		// effective settings. The API key is never written out.
		out := *cfg
		out.Anthropic.Key = ""

		data, err := yaml.Marshal(&out)
		if err != nil {
			return eris.Wrap(err, "config init: marshal")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrapf(err, "config init: write %s", path)
		}

		fmt.Fprintf(os.Stderr, "Wrote %s. Set INTAKE_ANTHROPIC_KEY in the environment.\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().String("output", "config.yaml", "output path")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
