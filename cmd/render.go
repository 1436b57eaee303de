package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/spectrogram-api/internal/services/pipeline"
	"github.com/killallgit/spectrogram-api/pkg/download"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render <url>",
	Short: "Render a spectrogram from a share link",
	Long: `Download the audio behind a share link and write its spectrogram PNG.

The default output name is the source filename with _spectrogram.png
appended, written to the current directory.

Example:
  spectro render "https://www.dropbox.com/s/abc/tone.wav?dl=0"
  spectro render https://example.com/take.flac -o take.png`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("output", "o", "", "output file (default <filename>_spectrogram.png)")
	renderCmd.Flags().Bool("no-progress", false, "hide the download progress bar")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyLogConfig(cmd, cfg); err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	downloader := download.NewDownloader(cfg.DownloadOptions())
	var bar *progressBar
	if !noProgress {
		bar = newProgressBar(cmd.ErrOrStderr(), "Downloading: ")
		downloader = downloader.WithProgress(bar.update)
	}

	svc, err := buildPipeline(cfg, downloader, pipeline.WithTempDir(cfg.Storage.TempDir))
	if err != nil {
		return err
	}

	ctx := contextOrBackground(cmd)
	if cfg.Processing.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Processing.JobTimeout)
		defer cancel()
	}

	logger := logrus.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"url":        args[0],
	})

	result, err := svc.GenerateReport(ctx, args[0])
	if bar != nil {
		bar.finish(err == nil)
	}
	if err != nil {
		logger.WithError(err).Debug("Render failed")
		return err
	}

	if output == "" {
		output = result.Image.Filename
	}
	if err := writeImage(output, result.Image.Bytes); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%d bytes)\n", output, len(result.Image.Bytes))
	fmt.Fprintf(out, "%s\n", result.Metadata.StreamLine())
	fmt.Fprintf(out, "Duration: %.2fs, %d bins x %d frames, took %s\n",
		result.Duration, result.Rows, result.Cols, result.Total().Round(time.Millisecond))
	return nil
}

// writeImage writes data to path, creating parent directories
func writeImage(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// progressBar renders download progress. The total is unknown until the
// first callback and may stay unknown when the server sends no length.
type progressBar struct {
	p    *mpb.Progress
	bar  *mpb.Bar
	last time.Time
	once sync.Once
}

func newProgressBar(out io.Writer, name string) *progressBar {
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(out))
	bar := p.AddBar(0,
		mpb.PrependDecorators(
			decor.Name(name),
			decor.CountersKibiByte("% .1f / % .1f"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)
	return &progressBar{p: p, bar: bar, last: time.Now()}
}

// update implements download.ProgressFunc
func (b *progressBar) update(downloaded, total int64) {
	if total > 0 {
		b.bar.SetTotal(total, false)
	}
	now := time.Now()
	b.bar.EwmaSetCurrent(downloaded, now.Sub(b.last))
	b.last = now
}

// finish completes or aborts the bar and waits for it to flush
func (b *progressBar) finish(ok bool) {
	b.once.Do(func() {
		if ok {
			b.bar.SetTotal(-1, true)
		} else {
			b.bar.Abort(false)
		}
		b.p.Wait()
	})
}
