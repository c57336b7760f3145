package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/soaringjerry/stackapp/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "stackapp",
	Short:        "StackApp: questions, answers, search and a Stack Overflow scraper",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, scrapeCmd, reindexCmd, migrateCmd)
}

// loadConfig reads .env (if any) before the YAML file so both feed the
// STACKAPP_* overrides.
func loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: .env: %v", err)
	}
	return config.Load(configPath)
}
