package cmd

import (
	"context"
	"errors"
	"io"
	"log"
	"os"

	"mazerl/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mazerl",
	Short: "Generate mazes and run reinforcement learning policies through them",
	Long: `mazerl generates grid mazes at a chosen difficulty, sends them to an
external training service, and replays the learned policy step by step,
explaining why a failed run failed.

Run "mazerl serve" for the browser view, or use gen and simulate from the
terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Config file; defaults are used when it does not exist")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")
}

// Execute runs the command named on the command line.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// loadConfig reads the config file, or the defaults when there is none.
func loadConfig() (*config.AppConfig, error) {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := config.LoadEnv(); err != nil {
			return nil, err
		}
		return config.Default(), nil
	}
	return config.FromYaml(configPath)
}

func newLogger() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "mazerl: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}
