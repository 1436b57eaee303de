// Package validator accepts or rejects audio assets by file extension.
package validator

import (
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
)

// DefaultExtensions is the allow-list used when none is configured
var DefaultExtensions = []string{".wav", ".mp3", ".flac", ".m4a", ".ogg", ".aac", ".aiff"}

// Validator checks filenames against a case-insensitive extension allow-list
type Validator struct {
	allowed map[string]struct{}
}

// New creates a validator. Extensions are normalized to lower case with a
// leading dot, so "WAV", ".wav" and "wav" are equivalent. An empty list
// falls back to DefaultExtensions.
func New(extensions []string) *Validator {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		if ext = Normalize(ext); ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	return &Validator{allowed: allowed}
}

// Normalize lower-cases ext and ensures a leading dot
func Normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Validate returns an UNSUPPORTED_FORMAT error when the filename's
// extension is not allowed
func (v *Validator) Validate(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := v.allowed[ext]; ok && ext != "" {
		return nil
	}
	return apperrors.UnsupportedFormatError(filename, v.Extensions())
}

// Allowed reports whether the filename would pass Validate
func (v *Validator) Allowed(filename string) bool {
	return v.Validate(filename) == nil
}

// Extensions returns the allow-list in sorted order
func (v *Validator) Extensions() []string {
	exts := make([]string, 0, len(v.allowed))
	for ext := range v.allowed {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
