// Package source resolves the media locations of a job to local files.
// Remote media (http, https and s3 URLs) is downloaded before its upload session starts.
package source

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

// Downloader fetches a remote object into dest.
type Downloader interface {
	Download(ctx context.Context, location *url.URL, dest string) error
}

// Config ...
type Config struct {
	// DownloadDir receives remote media. A temporary directory is created when empty.
	DownloadDir string
	S3          S3Config
}

// Resolver maps media locations to local paths.
type Resolver struct {
	logger       log.Logger
	pathProvider pathutil.PathProvider
	pathModifier pathutil.PathModifier
	downloaders  map[string]Downloader

	mu          sync.Mutex
	downloadDir string
	downloads   int
}

// NewResolver creates a resolver for local paths, file://, http(s):// and s3:// locations.
func NewResolver(config Config, logger log.Logger) *Resolver {
	httpDownloader := NewHTTPDownloader(logger)
	return &Resolver{
		logger:       logger,
		pathProvider: pathutil.NewPathProvider(),
		pathModifier: pathutil.NewPathModifier(),
		downloadDir:  config.DownloadDir,
		downloaders: map[string]Downloader{
			"http":  httpDownloader,
			"https": httpDownloader,
			"s3":    NewS3Downloader(config.S3, logger),
		},
	}
}

// WithDownloader overrides the downloader of a URL scheme.
func (r *Resolver) WithDownloader(scheme string, downloader Downloader) *Resolver {
	r.downloaders[scheme] = downloader
	return r
}

// IsRemote reports whether location has to be downloaded before upload.
func IsRemote(location string) bool {
	u, ok := parseURL(location)
	return ok && u.Scheme != "file"
}

// Resolve returns the local path of location, downloading it first if it is remote.
func (r *Resolver) Resolve(ctx context.Context, location string) (string, error) {
	u, ok := parseURL(location)
	if !ok {
		return location, nil
	}
	if u.Scheme == "file" {
		return r.pathModifier.AbsPath(filepath.FromSlash(u.Path))
	}

	downloader, ok := r.downloaders[u.Scheme]
	if !ok {
		return "", fmt.Errorf("unsupported media location scheme: %s", u.Scheme)
	}

	dest, err := r.destination(u)
	if err != nil {
		return "", err
	}

	r.logger.Infof("Downloading %s...", u.Redacted())
	if err := downloader.Download(ctx, u, dest); err != nil {
		return "", fmt.Errorf("download %s: %w", u.Redacted(), err)
	}
	r.logger.Donef("Downloaded to %s", dest)

	return dest, nil
}

func (r *Resolver) destination(u *url.URL) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.downloadDir == "" {
		dir, err := r.pathProvider.CreateTempDir("mediaupload")
		if err != nil {
			return "", fmt.Errorf("create download dir: %w", err)
		}
		r.downloadDir = dir
	}

	r.downloads++
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = "media"
	}

	return filepath.Join(r.downloadDir, fmt.Sprintf("%d-%s", r.downloads, name)), nil
}

// parseURL returns the URL of location if it has a scheme. Plain paths, including
// Windows drive letters, are not URLs.
func parseURL(location string) (*url.URL, bool) {
	if !strings.Contains(location, "://") {
		return nil, false
	}
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) < 2 {
		return nil, false
	}
	return u, true
}
