package main

import (
	"fmt"
	"os"

	"github.com/marmos91/dittogrid/pkg/config"
	"github.com/spf13/cobra"
)

var (
	configForce bool
	configOut   string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file populated with every default value.

Examples:
  dittogrid config init
  dittogrid config init --path ./dittogrid.yaml --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configOut
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		written, err := config.InitConfigToPath(path, configForce)
		if err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", written)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := config.GenerateYAML(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(content)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configInitCmd.Flags().StringVar(&configOut, "path", "", "destination (default $XDG_CONFIG_HOME/dittogrid/config.yaml)")
}
