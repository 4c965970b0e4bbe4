package chunkuploader

import (
	"fmt"
	"io"
	"os"
)

// FileChunkProvider reads chunks from a file on disk.
type FileChunkProvider struct {
	file     *os.File
	size     int64
	segments []Segment
}

// NewFileChunkProvider opens path and splits it into chunkSize segments.
func NewFileChunkProvider(path string, chunkSize int64) (*FileChunkProvider, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size: %d", chunkSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, fmt.Errorf("stat file: %w", err)
	}

	return &FileChunkProvider{
		file:     file,
		size:     info.Size(),
		segments: Split(info.Size(), chunkSize),
	}, nil
}

// NumChunks returns the total number of chunks.
func (p *FileChunkProvider) NumChunks() int {
	return len(p.segments)
}

// Size returns the file size in bytes.
func (p *FileChunkProvider) Size() int64 {
	return p.size
}

// ChunkSize returns the size of the chunk at the given index.
func (p *FileChunkProvider) ChunkSize(index int) int64 {
	if index < 0 || index >= len(p.segments) {
		return 0
	}
	return p.segments[index].Length
}

// GetChunk reads the chunk at the given index into memory.
func (p *FileChunkProvider) GetChunk(index int) ([]byte, error) {
	if index < 0 || index >= len(p.segments) {
		return nil, fmt.Errorf("chunk index %d out of range [0, %d)", index, len(p.segments))
	}

	segment := p.segments[index]
	chunk, err := io.ReadAll(io.NewSectionReader(p.file, segment.Offset, segment.Length))
	if err != nil {
		return nil, fmt.Errorf("read chunk %d: %w", index+1, err)
	}
	if int64(len(chunk)) != segment.Length {
		return nil, fmt.Errorf("short read at chunk %d: expected %d bytes, got %d", index+1, segment.Length, len(chunk))
	}

	return chunk, nil
}

// Close closes the underlying file.
func (p *FileChunkProvider) Close() error {
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}
