package metadata

import (
	"context"

	"github.com/killallgit/spectrogram-api/pkg/audio"
	"github.com/sirupsen/logrus"
)

// Chain queries sources in order. The first source that reads the file
// supplies the metadata, and later sources only fill fields still unknown.
type Chain struct {
	sources []Source
}

// NewChain creates an extractor over the given sources
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// NewDefaultChain reads native headers first and falls back to ffprobe
// when a prober is available
func NewDefaultChain(prober Prober) *Chain {
	sources := []Source{NativeSource{}}
	if prober != nil {
		sources = append(sources, NewProbeSource(prober))
	}
	return NewChain(sources...)
}

// Extract implements Extractor
func (c *Chain) Extract(ctx context.Context, path string) audio.Metadata {
	logger := logrus.WithFields(logrus.Fields{
		"function": "Extract",
		"path":     path,
	})

	meta := audio.UnknownMetadata()
	found := false
	for _, source := range c.sources {
		if found && complete(meta) {
			break
		}

		read, err := source.Read(ctx, path)
		if err != nil {
			logger.WithError(err).WithField("source", source.Name()).Debug("Metadata source failed")
			continue
		}

		if !found {
			meta = read
			found = true
		} else {
			meta = merge(meta, read)
		}
	}

	if !found {
		logger.Debug("No metadata available, reporting unknown fields")
	}
	return meta
}

func complete(m audio.Metadata) bool {
	return m.SampleRate != audio.Unknown && m.BitDepth != audio.Unknown && m.BitrateKbps != audio.Unknown
}

// merge fills unknown fields of base from extra
func merge(base, extra audio.Metadata) audio.Metadata {
	if base.SampleRate == audio.Unknown {
		base.SampleRate = extra.SampleRate
	}
	if base.BitDepth == audio.Unknown {
		base.BitDepth = extra.BitDepth
	}
	if base.BitrateKbps == audio.Unknown {
		base.BitrateKbps = extra.BitrateKbps
	}
	if base.Codec == "" {
		base.Codec = extra.Codec
	}
	if base.Format == "" {
		base.Format = extra.Format
	}
	if base.Duration == 0 {
		base.Duration = extra.Duration
	}
	return base
}
