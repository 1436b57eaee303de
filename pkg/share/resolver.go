// Package share turns file-sharing links into direct-download URLs.
package share

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Resolver rewrites one provider's share links into direct-download URLs
type Resolver interface {
	// Name identifies the provider in logs
	Name() string
	// Match reports whether the link belongs to this provider
	Match(u *url.URL) bool
	// Resolve returns the direct-download URL for the link
	Resolve(u *url.URL) (string, error)
}

// Registry selects a resolver by URL pattern. The first matching resolver
// wins, and links no provider claims are fetched as-is.
type Registry struct {
	resolvers []Resolver
	fallback  Resolver
}

// NewRegistry creates a registry over the given resolvers
func NewRegistry(resolvers ...Resolver) *Registry {
	return &Registry{
		resolvers: resolvers,
		fallback:  DirectResolver{},
	}
}

// DefaultRegistry returns a registry with every built-in provider
func DefaultRegistry() *Registry {
	return NewRegistry(DropboxResolver{}, GoogleDriveResolver{})
}

// Register appends a resolver
func (r *Registry) Register(resolver Resolver) {
	r.resolvers = append(r.resolvers, resolver)
}

// Resolve parses the link and returns its direct URL and the provider used
func (r *Registry) Resolve(link string) (string, string, error) {
	u, err := Parse(link)
	if err != nil {
		return "", "", err
	}

	for _, resolver := range r.resolvers {
		if resolver.Match(u) {
			direct, err := resolver.Resolve(u)
			return direct, resolver.Name(), err
		}
	}

	direct, err := r.fallback.Resolve(u)
	return direct, r.fallback.Name(), err
}

// Parse validates that link is an absolute http(s) URL
func Parse(link string) (*url.URL, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, fmt.Errorf("link is empty")
	}

	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("malformed link: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("link has no host")
	}

	return u, nil
}

// FilenameFromURL returns the URL-decoded last path segment of a share
// link. A "filename" query parameter overrides the path for providers whose
// links do not carry the name.
func FilenameFromURL(link string) (string, error) {
	u, err := Parse(link)
	if err != nil {
		return "", err
	}

	if name := u.Query().Get("filename"); name != "" {
		return path.Base(name), nil
	}

	// u.Path is already percent-decoded
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return "", fmt.Errorf("link has no filename")
	}
	return path.Base(p), nil
}

// DropboxResolver handles www.dropbox.com share links
type DropboxResolver struct{}

// Name implements Resolver
func (DropboxResolver) Name() string { return "dropbox" }

// Match implements Resolver
func (DropboxResolver) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "www.dropbox.com" || host == "dropbox.com"
}

// Resolve swaps the host for dl.dropboxusercontent.com and strips the dl flag
func (DropboxResolver) Resolve(u *url.URL) (string, error) {
	direct := *u
	direct.Host = "dl.dropboxusercontent.com"

	query := direct.Query()
	query.Del("dl")
	direct.RawQuery = query.Encode()

	return direct.String(), nil
}

var driveFilePath = regexp.MustCompile(`^/file/d/([A-Za-z0-9_-]+)`)

// GoogleDriveResolver handles drive.google.com/file/d/{id} links
type GoogleDriveResolver struct{}

// Name implements Resolver
func (GoogleDriveResolver) Name() string { return "google-drive" }

// Match implements Resolver
func (GoogleDriveResolver) Match(u *url.URL) bool {
	return strings.EqualFold(u.Hostname(), "drive.google.com") && driveFilePath.MatchString(u.Path)
}

// Resolve returns the uc?export=download form of the link
func (GoogleDriveResolver) Resolve(u *url.URL) (string, error) {
	m := driveFilePath.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("google drive link has no file id")
	}

	query := url.Values{}
	query.Set("export", "download")
	query.Set("id", m[1])

	return (&url.URL{
		Scheme:   "https",
		Host:     "drive.google.com",
		Path:     "/uc",
		RawQuery: query.Encode(),
	}).String(), nil
}

// DirectResolver fetches links unchanged
type DirectResolver struct{}

// Name implements Resolver
func (DirectResolver) Name() string { return "direct" }

// Match implements Resolver
func (DirectResolver) Match(*url.URL) bool { return true }

// Resolve implements Resolver
func (DirectResolver) Resolve(u *url.URL) (string, error) {
	return u.String(), nil
}
