package network

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// UploadCover uploads the image at path and returns its hosted URL.
func (c *Client) UploadCover(ctx context.Context, creds Credentials, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read cover: %w", err)
	}
	return c.api.uploadCover(ctx, creds, filepath.Base(path), data)
}

// ResolveCover returns the hosted URL of the cover at path.
// A missing file or a failed upload degrades to no cover: the empty string.
func (c *Client) ResolveCover(ctx context.Context, creds Credentials, path string) string {
	if path == "" {
		return ""
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		if err == nil {
			err = errors.New("not a regular file")
		}
		c.logger.Warnf("%s", &DegradedCoverError{Path: path, Err: err})
		return ""
	}

	url, err := c.UploadCover(ctx, creds, path)
	if err != nil {
		c.logger.Warnf("%s", &DegradedCoverError{Path: path, Err: err})
		return ""
	}

	c.logger.Debugf("Cover uploaded: %s", url)
	return url
}
