package network

import (
	"context"
	"fmt"
	"strings"
)

// Metadata is the top-level information of a published work.
type Metadata struct {
	Title       string
	Description string
	// CategoryID is the platform's category (tid) of the work.
	CategoryID int
	Tags       []string
	// Copyright is 1 for original works and 2 for reposts.
	Copyright int
	// Source is the original location of a reposted work.
	Source string
	// CoverPath is a local image uploaded as the cover. Optional.
	CoverPath string
	NoReprint bool
	OpenElec  bool
}

// ManifestPart references one finalized part.
type ManifestPart struct {
	Description string `json:"desc"`
	Filename    string `json:"filename"`
	Title       string `json:"title"`
}

// Manifest is the publish request referencing every finalized part.
type Manifest struct {
	Build     int            `json:"build"`
	Copyright int            `json:"copyright"`
	Cover     string         `json:"cover"`
	Desc      string         `json:"desc"`
	NoReprint int            `json:"no_reprint"`
	OpenElec  int            `json:"open_elec"`
	Source    string         `json:"source"`
	Tag       string         `json:"tag"`
	TID       int            `json:"tid"`
	Title     string         `json:"title"`
	Videos    []ManifestPart `json:"videos"`
}

// SubmitResult identifies the published work.
type SubmitResult struct {
	GlobalID int64
	PublicID string
}

// BuildManifest assembles the publish request. Every part must be finalized.
func BuildManifest(parts []*FilePart, metadata Metadata, coverURL string) (Manifest, error) {
	if len(parts) == 0 {
		return Manifest{}, fmt.Errorf("no parts to publish")
	}

	videos := make([]ManifestPart, 0, len(parts))
	for _, part := range parts {
		if !part.Finalized() {
			return Manifest{}, fmt.Errorf("%s: %w", part, ErrPartsNotFinalized)
		}
		videos = append(videos, ManifestPart{
			Description: part.Description,
			Filename:    part.ServerFilename,
			Title:       part.Title,
		})
	}

	return Manifest{
		Build:     clientBuild,
		Copyright: metadata.Copyright,
		Cover:     coverURL,
		Desc:      metadata.Description,
		NoReprint: boolToInt(metadata.NoReprint),
		OpenElec:  boolToInt(metadata.OpenElec),
		Source:    metadata.Source,
		Tag:       strings.Join(metadata.Tags, ","),
		TID:       metadata.CategoryID,
		Title:     metadata.Title,
		Videos:    videos,
	}, nil
}

// Submit publishes parts as a single work. It is attempted once; any failure is a *FatalManifestError,
// except for unfinalized parts, which return ErrPartsNotFinalized without contacting the platform.
func (c *Client) Submit(ctx context.Context, creds Credentials, parts []*FilePart, metadata Metadata) (SubmitResult, error) {
	if _, err := BuildManifest(parts, metadata, ""); err != nil {
		return SubmitResult{}, err
	}

	coverURL := c.ResolveCover(ctx, creds, metadata.CoverPath)

	manifest, err := BuildManifest(parts, metadata, coverURL)
	if err != nil {
		return SubmitResult{}, err
	}

	c.logger.Infof("Submitting %s with %d part(s)...", metadata.Title, len(manifest.Videos))
	result, err := c.api.submit(ctx, creds, manifest)
	if err != nil {
		return SubmitResult{}, err
	}
	c.logger.Donef("Submitted: %s (%d)", result.PublicID, result.GlobalID)

	return result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
