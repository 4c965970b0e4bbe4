package network

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitrise-io/go-mediaupload/publish/network/chunkuploader"
)

// FilePart is one media file uploaded as a part of a multi-part publish.
// It is mutated only by its own upload session; ServerFilename is set once, at finalize.
type FilePart struct {
	Path        string
	Title       string
	Description string
	ChunkSize   int64
	Size        int64
	ChunkCount  int

	// ServerFilename is the platform's name for the finalized file. Empty until finalize succeeds.
	ServerFilename string
}

// NewFilePart stats path and derives the chunk count of the part.
func NewFilePart(path, title, description string, chunkSize int64) (*FilePart, error) {
	if chunkSize <= 0 {
		chunkSize = chunkuploader.DefaultChunkSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat part: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("part %s is not a regular file", path)
	}

	if title == "" {
		title = filepath.Base(path)
	}

	return &FilePart{
		Path:        path,
		Title:       title,
		Description: description,
		ChunkSize:   chunkSize,
		Size:        info.Size(),
		ChunkCount:  chunkuploader.NumChunks(info.Size(), chunkSize),
	}, nil
}

// Key identifies the part in the progress tracker.
func (p *FilePart) Key() string {
	return p.Path
}

// FileName is the declared name of the part sent to the platform.
func (p *FilePart) FileName() string {
	return filepath.Base(p.Path)
}

// Finalized reports whether the platform assigned a server filename to the part.
func (p *FilePart) Finalized() bool {
	return p.ServerFilename != ""
}

func (p *FilePart) String() string {
	return fmt.Sprintf("%s (%s)", p.Title, p.Path)
}
