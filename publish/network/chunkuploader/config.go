package chunkuploader

import (
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultChunkSize is the fixed chunk size used by the platform client (2 MiB).
	DefaultChunkSize int64 = 2 * 1024 * 1024

	// DefaultMaxRetryPerChunk is the number of attempts made for a single chunk.
	DefaultMaxRetryPerChunk = 5

	// ClientVersion is the upload client version reported with every chunk and finalize call.
	ClientVersion = "2.0.0.1054"
)

// Config holds configuration for the chunk uploader.
type Config struct {
	// MaxRetryPerChunk is the maximum number of attempts per chunk.
	// Default: 5
	MaxRetryPerChunk int

	// RetryWait is the pause between two attempts of the same chunk.
	// Default: 0
	RetryWait time.Duration

	// ChunkSize is the declared chunk size sent with every chunk, including the last one.
	// Default: 2 MiB
	ChunkSize int64

	// HTTPClient is the client used for chunk requests.
	// If nil, DefaultHTTPClient is used.
	HTTPClient *retryablehttp.Client

	// OnAttempt is called right before every attempt with the zero based chunk index.
	OnAttempt func(index int)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetryPerChunk: DefaultMaxRetryPerChunk,
		ChunkSize:        DefaultChunkSize,
	}
}

// DefaultHTTPClient creates a retryable HTTP client with its built-in retries turned off.
// Every platform call owns its retry policy, so the transport must not retry behind it.
// Failed responses are passed through to the caller so status and body can be reported.
func DefaultHTTPClient(logger log.Logger) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	client.RetryMax = 0
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}
