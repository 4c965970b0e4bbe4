package chunkuploader

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/bitrise-io/go-mediaupload/internal/httpbody"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

// SessionCookie is the cookie that ties the chunks of one file to its server-side temp file.
const SessionCookie = "PHPSESSID"

// Uploader uploads the chunks of a single file, one at a time, with a bounded number
// of attempts per chunk.
type Uploader struct {
	config     Config
	httpClient *retryablehttp.Client
	logger     log.Logger
	stats      *Stats
}

// New creates a new Uploader with the given configuration.
func New(config Config, logger log.Logger) *Uploader {
	if config.MaxRetryPerChunk <= 0 {
		config.MaxRetryPerChunk = DefaultMaxRetryPerChunk
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = DefaultHTTPClient(logger)
	}

	return &Uploader{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		stats:      NewStats(),
	}
}

// Stats returns the upload statistics.
func (u *Uploader) Stats() *Stats {
	return u.stats
}

// UploadFile uploads every chunk of provider in index order, writing each accepted chunk to sum.
// It stops at the first chunk that fails; later chunks are never sent.
func (u *Uploader) UploadFile(ctx context.Context, target Target, provider ChunkProvider, sum io.Writer) error {
	total := provider.NumChunks()
	for index := 0; index < total; index++ {
		data, err := provider.GetChunk(index)
		if err != nil {
			return err
		}

		if err := u.UploadChunkWithRetry(ctx, target, data, index, total); err != nil {
			return err
		}

		if sum != nil {
			if _, err := sum.Write(data); err != nil {
				return err
			}
		}
	}
	return nil
}

// UploadChunkWithRetry uploads one chunk, retrying transient failures up to MaxRetryPerChunk attempts.
// A fatal attempt error is returned as is; running out of attempts returns an *ExhaustedError.
func (u *Uploader) UploadChunkWithRetry(ctx context.Context, target Target, data []byte, index, totalChunks int) error {
	var lastErr error

	for attempt := 0; attempt < u.config.MaxRetryPerChunk; attempt++ {
		if attempt > 0 && u.config.RetryWait > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("chunk %d upload cancelled: %w", index+1, ctx.Err())
			case <-time.After(u.config.RetryWait):
			}
		}

		if u.config.OnAttempt != nil {
			u.config.OnAttempt(index)
		}

		u.logger.Debugf("Uploading chunk %d/%d of %s (attempt %d/%d)",
			index+1, totalChunks, target.FileName, attempt+1, u.config.MaxRetryPerChunk)

		start := time.Now()
		err := u.UploadChunk(ctx, target, data, index, totalChunks)
		if err == nil {
			u.stats.Success(len(data), time.Since(start))
			return nil
		}
		u.stats.Fail()

		var transientErr *TransientError
		if !errors.As(err, &transientErr) {
			return err
		}

		lastErr = err
		u.logger.Warnf("%s: chunk %d attempt %d/%d failed: %s",
			target.FileName, index+1, attempt+1, u.config.MaxRetryPerChunk, err)
	}

	return &ExhaustedError{Index: index, Attempts: u.config.MaxRetryPerChunk, Last: lastErr}
}

// UploadChunk makes a single upload attempt for the chunk at index.
// Failures worth retrying are returned as *TransientError, anything else is fatal.
func (u *Uploader) UploadChunk(ctx context.Context, target Target, data []byte, index, totalChunks int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("chunk %d upload cancelled: %w", index+1, err)
	}

	body, contentType, err := u.chunkForm(target, data, index, totalChunks)
	if err != nil {
		return fmt.Errorf("build chunk %d form: %w", index+1, err)
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, target.URL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept-Encoding", httpbody.AcceptEncoding)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: target.ServerFilename})

	resp, err := u.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("chunk %d upload cancelled: %w", index+1, ctx.Err())
		}
		return &TransientError{Index: index, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			u.logger.Debugf("close chunk response body: %s", err)
		}
	}()

	respBody, err := httpbody.Read(resp)
	if err != nil {
		return &TransientError{Index: index, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransientError{Index: index, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var response uploadResponse
	if err := json.Unmarshal(respBody, &response); err != nil || response.OK != 1 {
		return &TransientError{Index: index, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}

func (u *Uploader) chunkForm(target Target, data []byte, index, totalChunks int) ([]byte, string, error) {
	sum := md5.Sum(data)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"version", ClientVersion},
		{"filesize", strconv.FormatInt(u.config.ChunkSize, 10)},
		{"chunk", strconv.Itoa(index)},
		{"chunks", strconv.Itoa(totalChunks)},
		{"md5", hex.EncodeToString(sum[:])},
	}
	for _, field := range fields {
		if err := writer.WriteField(field.key, field.value); err != nil {
			return nil, "", err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, target.FileName))
	header.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
