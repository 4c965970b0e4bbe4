package publish

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bitrise-io/go-mediaupload/publish/network"
	"github.com/bitrise-io/go-mediaupload/publish/network/chunkuploader"
	"github.com/bitrise-io/go-mediaupload/publish/source"
	"github.com/docker/go-units"
)

// Environment keys read by the publisher.
const (
	EnvAPIURL            = "MEDIAUPLOAD_API_URL"
	EnvTokenFile         = "MEDIAUPLOAD_TOKEN_FILE"
	EnvAccessToken       = "MEDIAUPLOAD_ACCESS_TOKEN"
	EnvSessionID         = "MEDIAUPLOAD_SID"
	EnvMemberID          = "MEDIAUPLOAD_MID"
	EnvAppKey            = "MEDIAUPLOAD_APP_KEY"
	EnvAppSecret         = "MEDIAUPLOAD_APP_SECRET"
	EnvWorkers           = "MEDIAUPLOAD_WORKERS"
	EnvMaxRetry          = "MEDIAUPLOAD_MAX_RETRY"
	EnvChunkSize         = "MEDIAUPLOAD_CHUNK_SIZE"
	EnvDownloadDir       = "MEDIAUPLOAD_DOWNLOAD_DIR"
	EnvS3Region          = "MEDIAUPLOAD_S3_REGION"
	EnvS3AccessKeyID     = "MEDIAUPLOAD_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "MEDIAUPLOAD_S3_SECRET_ACCESS_KEY"
	EnvS3Endpoint        = "MEDIAUPLOAD_S3_ENDPOINT"
	EnvAnalytics         = "MEDIAUPLOAD_ANALYTICS"
)

const (
	defaultNegotiateAttempts = 3
	defaultNegotiateWait     = 2 * time.Second
	defaultRenderInterval    = 5 * time.Second
)

type publishConfig struct {
	Verbose          bool
	APIBaseURL       string
	Credentials      network.Credentials
	AppKey           string
	AppSecret        string
	MaxWorkers       int
	MaxRetryPerChunk int
	ChunkSize        int64
	Source           source.Config
	Analytics        bool
	RenderInterval   time.Duration
}

func (p *publisher) createConfig(input PublishInput) (publishConfig, error) {
	if len(input.Parts) == 0 {
		return publishConfig{}, fmt.Errorf("no parts to publish")
	}
	if strings.TrimSpace(input.Metadata.Title) == "" {
		return publishConfig{}, fmt.Errorf("title should not be empty")
	}
	if input.Metadata.Copyright != 1 && input.Metadata.Copyright != 2 {
		return publishConfig{}, fmt.Errorf("copyright should be 1 (original) or 2 (repost), got %d", input.Metadata.Copyright)
	}
	if input.Metadata.Copyright == 2 && strings.TrimSpace(input.Metadata.Source) == "" {
		return publishConfig{}, fmt.Errorf("source should not be empty for reposts")
	}

	creds, err := p.credentials(input.TokenFile)
	if err != nil {
		return publishConfig{}, err
	}

	maxWorkers, err := p.intSetting(input.MaxWorkers, EnvWorkers, DefaultMaxWorkers)
	if err != nil {
		return publishConfig{}, err
	}
	maxRetry, err := p.intSetting(input.MaxRetryPerChunk, EnvMaxRetry, chunkuploader.DefaultMaxRetryPerChunk)
	if err != nil {
		return publishConfig{}, err
	}

	chunkSize := input.ChunkSize
	if chunkSize == 0 {
		chunkSize, err = parseChunkSize(p.envRepo.Get(EnvChunkSize))
		if err != nil {
			return publishConfig{}, err
		}
	}
	if chunkSize < 0 {
		return publishConfig{}, fmt.Errorf("chunk size should be positive")
	}

	apiBaseURL := p.envRepo.Get(EnvAPIURL)
	if apiBaseURL == "" {
		apiBaseURL = network.DefaultBaseURL
	}

	return publishConfig{
		Verbose:          input.Verbose,
		APIBaseURL:       apiBaseURL,
		Credentials:      creds,
		AppKey:           p.envRepo.Get(EnvAppKey),
		AppSecret:        p.envRepo.Get(EnvAppSecret),
		MaxWorkers:       maxWorkers,
		MaxRetryPerChunk: maxRetry,
		ChunkSize:        chunkSize,
		Source: source.Config{
			DownloadDir: p.envRepo.Get(EnvDownloadDir),
			S3: source.S3Config{
				Region:          p.envRepo.Get(EnvS3Region),
				AccessKeyID:     p.envRepo.Get(EnvS3AccessKeyID),
				SecretAccessKey: p.envRepo.Get(EnvS3SecretAccessKey),
				Endpoint:        p.envRepo.Get(EnvS3Endpoint),
			},
		},
		Analytics:      p.envRepo.Get(EnvAnalytics) == "true",
		RenderInterval: defaultRenderInterval,
	}, nil
}

// credentials prefers the token file; the MEDIAUPLOAD_ACCESS_TOKEN, _SID and _MID keys are the fallback.
func (p *publisher) credentials(tokenFile string) (network.Credentials, error) {
	if tokenFile == "" {
		tokenFile = p.envRepo.Get(EnvTokenFile)
	}
	if tokenFile != "" {
		absPath, err := p.pathModifier.AbsPath(tokenFile)
		if err != nil {
			return network.Credentials{}, err
		}
		return network.LoadCredentialsFile(absPath)
	}

	creds := network.Credentials{
		AccessToken: p.envRepo.Get(EnvAccessToken),
		SessionID:   p.envRepo.Get(EnvSessionID),
	}
	if mid := p.envRepo.Get(EnvMemberID); mid != "" {
		memberID, err := strconv.ParseInt(mid, 10, 64)
		if err != nil {
			return network.Credentials{}, fmt.Errorf("invalid %s: %w", EnvMemberID, err)
		}
		creds.MemberID = memberID
	}

	if err := creds.Validate(); err != nil {
		return network.Credentials{}, fmt.Errorf("no token file and no credentials in the environment: %w", err)
	}
	return creds, nil
}

func (p *publisher) intSetting(value int, key string, defaultValue int) (int, error) {
	if value != 0 {
		if value < 0 {
			return 0, fmt.Errorf("%s should be positive, got %d", key, value)
		}
		return value, nil
	}

	raw := p.envRepo.Get(key)
	if raw == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", key, raw)
	}
	return parsed, nil
}

// parseChunkSize accepts sizes like 2MB or 4MiB. Empty means the default chunk size.
func parseChunkSize(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return chunkuploader.DefaultChunkSize, nil
	}
	size, err := units.RAMInBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", EnvChunkSize, err)
	}
	if size <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", EnvChunkSize, raw)
	}
	return size, nil
}
