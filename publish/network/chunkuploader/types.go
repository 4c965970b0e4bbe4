// Package chunkuploader splits media files into fixed-size chunks and uploads them
// to the platform's chunk endpoint, one attempt at a time, with a per-chunk retry loop.
package chunkuploader

// Target identifies where the chunks of one file are uploaded.
type Target struct {
	// URL is the chunk upload endpoint returned by the pre-upload negotiation.
	URL string
	// ServerFilename is the temporary filename assigned by the platform.
	// It is sent as the session cookie so the server appends every chunk to the same file.
	ServerFilename string
	// FileName is the declared name of the local file.
	FileName string
}

// ChunkProvider provides chunk data for upload.
type ChunkProvider interface {
	// NumChunks returns the total number of chunks.
	NumChunks() int

	// ChunkSize returns the size of the chunk at the given index.
	ChunkSize(index int) int64

	// GetChunk returns the bytes of the chunk at the given index.
	// The slice is kept in memory for the lifetime of the chunk's retries.
	GetChunk(index int) ([]byte, error)
}

type uploadResponse struct {
	OK   int    `json:"OK"`
	Info string `json:"info"`
}
