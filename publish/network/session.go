package network

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bitrise-io/go-mediaupload/publish/network/chunkuploader"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// State is the phase of a part's upload session.
// Chunk uploads are provisional; finalize is the commit point.
type State int

// Session states. Any error moves a session to StateFailed.
const (
	StateNegotiating State = iota
	StateUploadingChunks
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNegotiating:
		return "negotiating"
	case StateUploadingChunks:
		return "uploading chunks"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ProgressSink receives the optimistic chunk progress of a part.
type ProgressSink interface {
	Set(key string, done int)
}

// Session uploads a single part: negotiate a target, upload every chunk in order, finalize.
type Session struct {
	client *Client
	part   *FilePart
	creds  Credentials
	sink   ProgressSink
	logger log.Logger

	mu    sync.Mutex
	state State
}

// State returns the current phase of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) transition(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debugf("%s: %s -> %s", s.part.Title, s.state, state)
	s.state = state
}

func (s *Session) fail(err error) error {
	fatalErr := &FatalFileError{Part: s.part, State: s.State(), Err: err}
	s.transition(StateFailed)
	return fatalErr
}

// Run uploads the part and returns its server filename.
// Every error is a *FatalFileError that leaves other sessions untouched.
func (s *Session) Run(ctx context.Context) (string, error) {
	if s.part.Finalized() {
		return "", s.fail(fmt.Errorf("part already finalized as %s", s.part.ServerFilename))
	}

	s.transition(StateNegotiating)
	target, err := s.negotiate(ctx)
	if err != nil {
		return "", s.fail(fmt.Errorf("preupload: %w", err))
	}
	s.logger.Debugf("%s: uploading to %s as %s", s.part.Title, target.ChunkURL, target.ServerFilename)

	s.transition(StateUploadingChunks)
	start := time.Now()
	checksum, err := s.uploadChunks(ctx, target)
	if err != nil {
		return "", s.fail(err)
	}

	s.transition(StateFinalizing)
	err = s.client.api.finalize(ctx, target, finalizeRequest{
		Chunks:   s.part.ChunkCount,
		FileSize: s.part.Size,
		MD5:      checksum,
		Name:     s.part.FileName(),
	})
	if err != nil {
		return "", s.fail(fmt.Errorf("finalize: %w", err))
	}

	s.part.ServerFilename = target.ServerFilename
	s.transition(StateDone)
	s.logger.Donef("%s uploaded (%s in %s)", s.part.Title,
		units.HumanSizeWithPrecision(float64(s.part.Size), 3), time.Since(start).Round(time.Second))

	return target.ServerFilename, nil
}

func (s *Session) negotiate(ctx context.Context) (UploadTarget, error) {
	attempts := s.client.config.NegotiateAttempts
	if attempts < 1 {
		attempts = 1
	}

	var target UploadTarget
	err := retry.Times(uint(attempts-1)).Wait(s.client.config.NegotiateWait).TryWithAbort(func(attempt uint) (error, bool) {
		if attempt > 0 {
			s.logger.Warnf("%s: preupload attempt %d/%d", s.part.Title, attempt+1, attempts)
		}

		var err error
		target, err = s.client.api.preupload(ctx, s.creds)
		if err == nil {
			return nil, true
		}
		return err, !isRetryableNegotiation(ctx, err)
	})

	return target, err
}

// Transport errors and server errors are worth another negotiation attempt, anything else is final.
func isRetryableNegotiation(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError || httpErr.StatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func (s *Session) uploadChunks(ctx context.Context, target UploadTarget) (string, error) {
	provider, err := chunkuploader.NewFileChunkProvider(s.part.Path, s.part.ChunkSize)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := provider.Close(); err != nil {
			s.logger.Warnf("failed to close %s: %s", s.part.Path, err)
		}
	}()

	if provider.Size() != s.part.Size {
		return "", fmt.Errorf("%s changed size since the part was created: %d -> %d bytes", s.part.Path, s.part.Size, provider.Size())
	}

	key := s.part.Key()
	uploader := chunkuploader.New(chunkuploader.Config{
		MaxRetryPerChunk: s.client.config.MaxRetryPerChunk,
		RetryWait:        s.client.config.RetryWait,
		ChunkSize:        s.part.ChunkSize,
		HTTPClient:       s.client.httpClient,
		OnAttempt: func(index int) {
			if s.sink != nil {
				s.sink.Set(key, index+1)
			}
		},
	}, s.logger)

	chunkTarget := chunkuploader.Target{
		URL:            target.ChunkURL,
		ServerFilename: target.ServerFilename,
		FileName:       s.part.FileName(),
	}

	hash := md5.New()
	if err := uploader.UploadFile(ctx, chunkTarget, provider, hash); err != nil {
		return "", err
	}

	stats := uploader.Stats().Snapshot()
	s.logger.Debugf("%s: %d chunks uploaded, %d failed attempts, avg %s per chunk, %s/s",
		s.part.Title, stats.Chunks, stats.FailedAttempts, stats.Average().Round(time.Millisecond),
		units.HumanSize(stats.Throughput()))

	return hex.EncodeToString(hash.Sum(nil)), nil
}
