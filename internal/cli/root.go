package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"guide/config"
	"guide/internal/logging"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logger   = zap.NewNop()
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Select and compose the coding guidelines that apply to a file",
		Long: `Guide reads a corpus of guideline documents, each scoped to files by glob
patterns, and composes the guidance that applies to a given file into one
ordered, de-duplicated list of sections.

Example usage:
  guide query src/app/app.component.ts   # Guidance for one file
  guide check                            # Validate the corpus
  guide list                             # Show loaded documents
  guide serve                            # MCP server on stdio`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error

			if rootDir == "" {
				rootDir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get working directory: %w", err)
				}
			}

			if cfgFile != "" {
				cfg, err = config.Load(cfgFile)
			} else {
				cfg, err = config.LoadFromDir(rootDir)
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			logger, err = logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./guide.yaml)")
	cmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	return cmd
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
