package network

import (
	"context"
	"time"

	"github.com/bitrise-io/go-mediaupload/publish/network/chunkuploader"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the member API of the publishing platform.
const DefaultBaseURL = "https://member.bilibili.com"

// ClientConfig ...
type ClientConfig struct {
	BaseURL   string
	AppKey    string
	AppSecret string

	// MaxRetryPerChunk is the number of attempts per chunk. Default: 5
	MaxRetryPerChunk int
	// RetryWait is the pause between two attempts of a chunk. Default: 0
	RetryWait time.Duration
	// NegotiateAttempts is the number of preupload attempts on transport or server errors. Default: 3
	NegotiateAttempts int
	// NegotiateWait is the pause between two preupload attempts. Default: 0
	NegotiateWait time.Duration

	// HTTPClient is shared by every call. If nil, chunkuploader.DefaultHTTPClient is used.
	HTTPClient *retryablehttp.Client
}

// Client talks to the publishing platform.
type Client struct {
	config     ClientConfig
	api        apiClient
	httpClient *retryablehttp.Client
	logger     log.Logger
}

// NewClient ...
func NewClient(config ClientConfig, logger log.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.MaxRetryPerChunk <= 0 {
		config.MaxRetryPerChunk = chunkuploader.DefaultMaxRetryPerChunk
	}
	if config.NegotiateAttempts <= 0 {
		config.NegotiateAttempts = 3
	}
	if config.NegotiateWait < 0 {
		config.NegotiateWait = 0
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = chunkuploader.DefaultHTTPClient(logger)
	}

	return &Client{
		config:     config,
		api:        newAPIClient(httpClient, config.BaseURL, config.AppKey, config.AppSecret, logger),
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewSession prepares the upload session of one part. sink may be nil.
func (c *Client) NewSession(part *FilePart, creds Credentials, sink ProgressSink) *Session {
	return &Session{
		client: c,
		part:   part,
		creds:  creds,
		sink:   sink,
		logger: c.logger,
		state:  StateNegotiating,
	}
}

// UploadPart runs the upload session of part and returns its server filename.
func (c *Client) UploadPart(ctx context.Context, part *FilePart, creds Credentials, sink ProgressSink) (string, error) {
	return c.NewSession(part, creds, sink).Run(ctx)
}
