package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/killallgit/spectrogram-api/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spectro",
	Short: "Spectrogram API server and renderer",
	Long: `Spectro - renders spectrogram images from shared audio links

A link to a file on Dropbox, Google Drive or any HTTP server is downloaded,
decoded to mono samples, analyzed with a short-time Fourier transform and
drawn as a labelled PNG.

Features:
  • WAV, AIFF, FLAC, MP3 and Ogg Vorbis decoding in pure Go
  • AAC/M4A through ffmpeg when it is installed
  • HTTP API with render history and Prometheus metrics
  • One-shot rendering from the command line`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Add persistent flags for logging configuration
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "enable JSON formatted logs")
}

// loadConfig initializes configuration for commands that need it
func loadConfig() (*config.Config, error) {
	if err := config.Init(); err != nil {
		return nil, fmt.Errorf("error initializing config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging configures logrus from flags. Explicit flags win over the
// logging section of the config file, which is applied later by
// applyLogConfig.
func setupLogging(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	return configureLogging(level, jsonLogs)
}

// applyLogConfig applies config logging settings for flags left unset
func applyLogConfig(cmd *cobra.Command, cfg *config.Config) error {
	level, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")

	if !cmd.Flags().Changed("log-level") && cfg.Logging.Level != "" {
		level = cfg.Logging.Level
	}
	if !cmd.Flags().Changed("json-logs") {
		jsonLogs = strings.EqualFold(cfg.Logging.Format, "json")
	}
	return configureLogging(level, jsonLogs)
}

func configureLogging(level string, jsonLogs bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)

	if jsonLogs {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stderr)
	return nil
}
