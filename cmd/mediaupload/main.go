package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mediaupload: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mediaupload",
		Short: "Upload media parts and publish them as one work",
		Long: `mediaupload splits media files into chunks, uploads them to the publishing platform
with bounded retries, and submits the finalized parts as a single multi-part work.

Credentials and settings are read from MEDIAUPLOAD_* environment variables,
optionally loaded from a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before running, if present")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logs")
	cmd.AddCommand(
		newPublishCmd(),
		newPlanCmd(),
		newTokenCmd(),
	)
	return cmd
}

func newLogger() log.Logger {
	logger := log.NewLogger()
	logger.EnableDebugLog(verbose)
	return logger
}

// loadEnvFile never overrides variables that are already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
