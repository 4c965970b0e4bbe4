// Package publish uploads the parts of a work to the publishing platform and submits
// them as one published work.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/bitrise-io/go-mediaupload/publish/network"
	"github.com/bitrise-io/go-mediaupload/publish/progress"
	"github.com/bitrise-io/go-mediaupload/publish/source"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/docker/go-units"
	"github.com/google/uuid"
)

// PublishInput describes one publish run. Zero values fall back to the MEDIAUPLOAD_* environment, then to defaults.
type PublishInput struct {
	Verbose  bool
	Parts    []PartInput
	Metadata network.Metadata
	// TokenFile is a persisted login (see network.LoadCredentialsFile).
	TokenFile string
	// MaxWorkers is the number of parts uploaded at the same time. Default: 1
	MaxWorkers int
	// MaxRetryPerChunk is the number of attempts per chunk. Default: 5
	MaxRetryPerChunk int
	// ChunkSize in bytes. Default: 2 MiB
	ChunkSize int64
}

// Publisher ...
type Publisher interface {
	Publish(ctx context.Context, input PublishInput) (network.SubmitResult, error)
}

type publisher struct {
	envRepo      env.Repository
	logger       log.Logger
	pathModifier pathutil.PathModifier
	pathChecker  pathutil.PathChecker
	uploader     network.PartUploader
	submitter    network.ManifestSubmitter
	resolver     SourceResolver
	progress     *progress.Tracker
}

// NewPublisher creates a new publisher instance. `uploader`, `submitter` and `resolver` can be nil,
// the platform client and the default source resolver are used then.
func NewPublisher(
	envRepo env.Repository,
	logger log.Logger,
	pathModifier pathutil.PathModifier,
	pathChecker pathutil.PathChecker,
	uploader network.PartUploader,
	submitter network.ManifestSubmitter,
	resolver SourceResolver,
) *publisher {
	return &publisher{
		envRepo:      envRepo,
		logger:       logger,
		pathModifier: pathModifier,
		pathChecker:  pathChecker,
		uploader:     uploader,
		submitter:    submitter,
		resolver:     resolver,
		progress:     progress.NewTracker(),
	}
}

// Progress returns the per-part progress of the current run.
func (p *publisher) Progress() *progress.Tracker {
	return p.progress
}

// Publish uploads every part, then submits the manifest.
// The manifest is submitted only when every part was finalized; otherwise the first part failure is returned.
func (p *publisher) Publish(ctx context.Context, input PublishInput) (network.SubmitResult, error) {
	p.logger.TDebugf("Publish start")
	defer func() {
		p.logger.TDebugf("Publish done")
	}()

	config, err := p.createConfig(input)
	if err != nil {
		return network.SubmitResult{}, fmt.Errorf("failed to parse inputs: %w", err)
	}
	p.logger.TDebugf("Config created")

	runID := uuid.NewString()
	p.logger.Debugf("Run ID: %s", runID)

	tracker := newRunTracker(runID, config.Analytics, p.envRepo, p.logger)
	defer tracker.wait()

	uploader, submitter := p.uploader, p.submitter
	if uploader == nil || submitter == nil {
		client := network.NewClient(network.ClientConfig{
			BaseURL:           config.APIBaseURL,
			AppKey:            config.AppKey,
			AppSecret:         config.AppSecret,
			MaxRetryPerChunk:  config.MaxRetryPerChunk,
			NegotiateAttempts: defaultNegotiateAttempts,
			NegotiateWait:     defaultNegotiateWait,
		}, p.logger)
		if uploader == nil {
			uploader = client
		}
		if submitter == nil {
			submitter = client
		}
	}

	resolver := p.resolver
	if resolver == nil {
		resolver = source.NewResolver(config.Source, p.logger)
	}

	p.logger.Println()
	p.logger.Infof("Evaluating parts...")
	parts, err := p.evaluateParts(ctx, input.Parts, config.ChunkSize, resolver)
	if err != nil {
		return network.SubmitResult{}, fmt.Errorf("failed to evaluate parts: %w", err)
	}

	var totalBytes int64
	for _, part := range parts {
		p.progress.Register(part.Key(), part.Title, part.ChunkCount)
		totalBytes += part.Size
		p.logger.Printf("%s: %s (%s, %d chunks)", part.Title, part.Path,
			units.HumanSizeWithPrecision(float64(part.Size), 3), part.ChunkCount)
	}
	p.logger.Donef("%d part(s), %s in total", len(parts), units.HumanSizeWithPrecision(float64(totalBytes), 3))

	p.logger.Println()
	p.logger.Infof("Uploading parts with %d worker(s)...", config.MaxWorkers)
	uploadStartTime := time.Now()
	outcomes := p.upload(ctx, uploader, config, parts)
	uploadTime := time.Since(uploadStartTime).Round(time.Second)
	tracker.logPartsUploaded(uploadTime, outcomes, totalBytes)

	if !outcomes.Succeeded() {
		failed := outcomes.Failed()
		for _, outcome := range failed {
			p.logger.Errorf("%s", outcome.Err)
		}
		return network.SubmitResult{}, fmt.Errorf("%d of %d part(s) failed to upload, not submitting: %w",
			len(failed), len(parts), outcomes.FirstError())
	}
	p.logger.Donef("Parts uploaded in %s", uploadTime)

	p.logger.Println()
	submitStartTime := time.Now()
	result, err := submitter.Submit(ctx, config.Credentials, parts, input.Metadata)
	if err != nil {
		return network.SubmitResult{}, err
	}
	tracker.logManifestSubmitted(time.Since(submitStartTime), len(parts), input.Metadata.CoverPath != "")
	p.logger.Donef("Published %s as %s (%d)", input.Metadata.Title, result.PublicID, result.GlobalID)

	return result, nil
}

func (p *publisher) upload(ctx context.Context, uploader network.PartUploader, config publishConfig, parts []*network.FilePart) Outcomes {
	renderer := progress.NewRenderer(p.progress, p.logger)
	renderCtx, stopRender := context.WithCancel(ctx)
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		renderer.Run(renderCtx, config.RenderInterval)
	}()

	scheduler := NewScheduler(uploader, config.Credentials, p.progress, p.logger)
	outcomes := scheduler.UploadAll(ctx, parts, config.MaxWorkers)

	stopRender()
	<-renderDone

	return outcomes
}
