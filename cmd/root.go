// Package cmd implements the watermark-remover command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"watermark_remover/config"
)

var (
	cfgFile     string
	verbose     bool
	logFilePath string

	// cfg and log are initialized by initRuntime before any subcommand runs.
	cfg config.Config
	log = logrus.New()
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "watermark-remover",
	Short: "Remove watermarks from PDF files",
	Long: `watermark-remover strips text and image watermarks from PDF files.

The document's Producer metadata decides how: documents stamped by known
generator tools lose their full-page watermark image, all others go through
a repeated-pattern scan of their content streams.

Examples:
  watermark-remover remove document.pdf
  watermark-remover batch ./invoices --recursive --parallel 4
  watermark-remover serve --port 5566`,
	SilenceUsage:      true,
	PersistentPreRunE: initRuntime,
}

// Execute runs the root command. It is called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&logFilePath, "log-file", "l", "", "write logs to this file instead of stderr")
}

// initRuntime loads the configuration and prepares the logger. It runs before
// every subcommand, so command handlers can rely on cfg and log being ready.
func initRuntime(cmd *cobra.Command, args []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFilePath != "" {
		cfg.LogFile = logFilePath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
		}
		log.SetOutput(f)
	}
	return nil
}
