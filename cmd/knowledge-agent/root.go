// Package cmd defines the command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/connexus-ai/knowledge-agent/pkg/config"
	"github.com/connexus-ai/knowledge-agent/pkg/log"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "knowledge-agent",
	Short: "Document indexing and retrieval-augmented chat for hosted knowledge bases",
	Long: `knowledge-agent indexes documents from a hosted document platform into a
vector index and answers questions about them through a tool-calling chat
agent, filtering every retrieved source by the asking user's own permissions.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig reads configuration and applies the logging flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.SetDebug(debug || cfg.LogDebug)
	return cfg, nil
}
