// Package cleanup sweeps scoped pipeline directories left behind by
// processes that exited before their deferred removal ran.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Service periodically removes stale temporary pipeline directories
type Service struct {
	tempDir         string
	prefix          string
	maxAge          time.Duration
	cleanupInterval time.Duration
	cancel          context.CancelFunc
	done            chan struct{}
}

// NewService creates a new cleanup service. Directories directly under
// tempDir whose name starts with prefix and whose modification time is
// older than maxAge are removed.
func NewService(tempDir, prefix string, maxAge, cleanupInterval time.Duration) *Service {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Service{
		tempDir:         tempDir,
		prefix:          prefix,
		maxAge:          maxAge,
		cleanupInterval: cleanupInterval,
	}
}

// Start runs one sweep immediately, then one per interval until ctx is
// cancelled or Stop is called
func (s *Service) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.Sweep()

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-ctx.Done():
				logrus.Info("Cleanup service stopped")
				return
			}
		}
	}()

	logrus.WithFields(logrus.Fields{
		"dir":      s.tempDir,
		"interval": s.cleanupInterval.String(),
		"max_age":  s.maxAge.String(),
	}).Info("Cleanup service started")
}

// Stop stops the cleanup service and waits for the loop to exit
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
}

// Sweep removes stale directories and returns how many were removed
func (s *Service) Sweep() int {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).WithField("dir", s.tempDir).Error("Cleanup read error")
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), s.prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // Removed concurrently
		}
		if time.Since(info.ModTime()) <= s.maxAge {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		logrus.WithField("path", path).Debug("Removing stale temp directory")
		if err := os.RemoveAll(path); err != nil {
			logrus.WithError(err).WithField("path", path).Warn("Failed to remove temp directory")
			continue
		}
		removed++
	}

	return removed
}
