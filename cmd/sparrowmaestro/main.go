package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sguter90/sparrowmaestro/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sparrowmaestro",
	Short: "SparrowMaestro - Sparrow sensor dashboard backend",
	Long: `SparrowMaestro collects readings from Sparrow gateways and nodes via Notehub,
stores their history and serves a merged view of live and stored data.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "directory containing sparrowmaestro.yaml")
}

// loadConfig reads and validates the configuration for a command
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
