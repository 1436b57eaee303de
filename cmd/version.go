package cmd

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/killallgit/spectrogram-api/pkg/config"
	"github.com/spf13/cobra"
)

// Build variables - these will be set during build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
	OS        = runtime.GOOS
	Arch      = runtime.GOARCH
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and analysis settings",
	Long: `Display the Spectro build along with the analysis settings the
current configuration resolves to: decibel mode, STFT window and hop,
canvas size, duration cap and accepted extensions.`,
	Run: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "print just the version number")
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	if short, _ := cmd.Flags().GetBool("short"); short {
		fmt.Fprintf(out, "v%s\n", Version)
		return
	}

	rule := strings.Repeat("-", 40)
	fmt.Fprintf(out, "Spectro v%s (%s, built %s)\n", Version, GitCommit, BuildTime)
	fmt.Fprintf(out, "%s %s/%s\n", GoVersion, OS, Arch)
	fmt.Fprintln(out, rule)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "Settings:     unavailable (%v)\n", err)
	} else if err := writeSettings(out, cfg); err != nil {
		fmt.Fprintf(out, "Settings:     invalid (%v)\n", err)
	}
	fmt.Fprintln(out, rule)
}

// writeSettings prints the analysis settings cfg resolves to
func writeSettings(out io.Writer, cfg *config.Config) error {
	spectralCfg, err := cfg.SpectralConfig()
	if err != nil {
		return err
	}
	renderOpts := cfg.RenderOptions()

	maxDuration := "unlimited"
	if cfg.Pipeline.MaxDuration > 0 {
		maxDuration = cfg.Pipeline.MaxDuration.String()
	}

	fmt.Fprintf(out, "dB Mode:      %s\n", spectralCfg.Mode)
	fmt.Fprintf(out, "Window/Hop:   %d/%d (Hann)\n", spectralCfg.WindowSize, spectralCfg.HopSize)
	fmt.Fprintf(out, "Canvas:       %dx%d\n", renderOpts.Width, renderOpts.Height)
	fmt.Fprintf(out, "Max Duration: %s\n", maxDuration)
	fmt.Fprintf(out, "Extensions:   %s\n", strings.Join(cfg.Validator().Extensions(), " "))
	return nil
}
