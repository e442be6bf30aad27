package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/eb-packager/internal/config"
	"github.com/oshokin/eb-packager/internal/logger"
	"github.com/oshokin/eb-packager/internal/service/packager"
	"github.com/oshokin/eb-packager/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// envFile to load before running commands.
	envFile string
	// logLevel is the minimum level of printed messages.
	logLevel string
	// forceInit overwrites an existing settings file.
	forceInit bool

	// errUnknownLogLevel is returned for an unsupported --log-level value.
	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd builds the project in the current directory and packs it for Elastic Beanstalk.
	rootCmd = &cobra.Command{
		Use:           "eb-packager",
		Short:         "Build the project and pack dist into a deployable archive",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			options := &packager.Options{
				ConfigPath: configPath,
				EnvFile:    envFile,
			}

			return packager.Run(cmd.Context(), options)
		},
	}

	// initCmd writes the default settings file into the current directory.
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with the default commands and paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options := &packager.InitOptions{
				ConfigPath: configPath,
				Force:      forceInit,
			}

			_, err := packager.WriteDefaultConfig(cmd.Context(), options)

			return err
		},
	}
)

// Execute runs the eb-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		packager.LogFailure(ctx, err)
		logger.Sync()
		os.Exit(1)
	}

	logger.Sync()
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", "", "dotenv file loaded before running commands")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn, error")

	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing settings file")
	rootCmd.AddCommand(initCmd)
}
