package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yourusername/yt-audio-extract/internal/app"
	"github.com/yourusername/yt-audio-extract/internal/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join("$HOME", ".ytaudio", "config.yaml")
		if len(args) == 1 {
			path = args[0]
		}
		if home, err := os.UserHomeDir(); err == nil {
			path = os.Expand(path, func(key string) string {
				if key == "HOME" {
					return home
				}
				return os.Getenv(key)
			})
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}

		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}
		fmt.Printf("Server:      %s:%d\n", config.Server.Host, config.Server.Port)
		fmt.Printf("Converter:   %s\n", config.Converter.URL)
		fmt.Printf("Output dir:  %s\n", config.Extraction.OutputDir)
		fmt.Printf("Database:    %s\n", config.Queue.DatabasePath)
		fmt.Printf("Logs dir:    %s\n", config.Logging.LogsDir)
		fmt.Printf("Headless:    %t\n", config.Browser.Headless)
		fmt.Printf("Concurrency: %d\n", config.Extraction.ConcurrentLimit)
		fmt.Printf("Poll timeout: %s\n", config.Extraction.PollTimeout)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configShowCmd.Flags().StringP("config", "c", "", "Path to config file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
}
