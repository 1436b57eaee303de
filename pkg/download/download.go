package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ChunkSize is the read size used when streaming a response body to disk
const ChunkSize = 1024

// DownloadOptions configures the download behavior
type DownloadOptions struct {
	MaxSize      int64         // Maximum file size in bytes (0 = no limit)
	Timeout      time.Duration // Download timeout
	ProgressFunc ProgressFunc  // Optional progress callback
	UserAgent    string        // User agent string
}

// ProgressFunc is called during download to report progress. total is -1
// when the server did not send a Content-Length.
type ProgressFunc func(downloaded, total int64)

// DefaultOptions returns default download options
func DefaultOptions() DownloadOptions {
	return DownloadOptions{
		MaxSize:   500 * 1024 * 1024, // 500MB default max
		Timeout:   5 * time.Minute,
		UserAgent: "SpectrogramAPI/1.0",
	}
}

// DownloadResult contains information about a successful download
type DownloadResult struct {
	FilePath      string // Path to downloaded file
	ContentType   string // Content-Type from response
	ContentLength int64  // Size in bytes
}

// Downloader streams remote audio files into local storage
type Downloader struct {
	client  *http.Client
	options DownloadOptions
}

// NewDownloader creates a new downloader with the given options
func NewDownloader(options DownloadOptions) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true, // Don't compress audio
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
	}
}

// WithProgress returns a copy of the downloader reporting to fn
func (d *Downloader) WithProgress(fn ProgressFunc) *Downloader {
	clone := *d
	clone.options.ProgressFunc = fn
	return &clone
}

// DownloadToDir downloads url into dir/filename. Any failure is returned as
// a DOWNLOAD AppError and leaves no partial file behind.
func (d *Downloader) DownloadToDir(ctx context.Context, url, dir, filename string) (*DownloadResult, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "DownloadToDir",
		"url":      url,
	})
	logger.Debug("Starting download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.DownloadError(0, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", d.options.UserAgent)
	req.Header.Set("Accept", "audio/*,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, apperrors.DownloadError(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.DownloadError(resp.StatusCode, nil)
	}

	contentLength := resp.ContentLength
	if d.options.MaxSize > 0 && contentLength > d.options.MaxSize {
		return nil, apperrors.Newf(apperrors.ErrCodeDownload, "file too large: %d bytes (max %d)", contentLength, d.options.MaxSize).
			WithDetail("size", contentLength)
	}

	destPath := filepath.Join(dir, filepath.Base(filename))
	file, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, apperrors.DownloadError(0, fmt.Errorf("failed to create file: %w", err))
	}

	written, err := d.downloadToFile(ctx, resp.Body, file, contentLength)
	closeErr := file.Close()
	if err == nil && closeErr != nil {
		err = apperrors.DownloadError(0, closeErr)
	}
	if err != nil {
		if rmErr := os.Remove(destPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.WithError(rmErr).Warn("Failed to remove partial download")
		}
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"bytes": written,
		"path":  destPath,
	}).Debug("Download complete")

	return &DownloadResult{
		FilePath:      destPath,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: written,
	}, nil
}

// downloadToFile copies src to dst in ChunkSize reads, enforcing MaxSize
// and reporting progress
func (d *Downloader) downloadToFile(ctx context.Context, src io.Reader, dst io.Writer, totalSize int64) (int64, error) {
	reader := src
	if d.options.ProgressFunc != nil {
		total := totalSize
		if total <= 0 {
			total = -1
		}
		reader = &progressReader{
			reader:   src,
			total:    total,
			callback: d.options.ProgressFunc,
		}
	}

	// One byte past the limit distinguishes "exactly MaxSize" from "too large"
	if d.options.MaxSize > 0 {
		reader = &io.LimitedReader{
			R: reader,
			N: d.options.MaxSize + 1,
		}
	}

	buf := make([]byte, ChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, apperrors.DownloadError(0, err)
		}

		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, apperrors.DownloadError(0, fmt.Errorf("failed to write file: %w", err))
			}
			written += int64(n)
			if d.options.MaxSize > 0 && written > d.options.MaxSize {
				return written, apperrors.Newf(apperrors.ErrCodeDownload, "file too large: exceeds %d bytes", d.options.MaxSize)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, apperrors.DownloadError(0, readErr)
		}
	}
}

// progressReader wraps a reader to report progress
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	callback   ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		if pr.callback != nil {
			pr.callback(pr.downloaded, pr.total)
		}
	}
	return n, err
}
