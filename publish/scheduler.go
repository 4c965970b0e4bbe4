package publish

import (
	"context"

	"github.com/bitrise-io/go-mediaupload/publish/network"
	"github.com/bitrise-io/go-utils/v2/log"
)

// DefaultMaxWorkers is the number of parts uploaded at the same time.
const DefaultMaxWorkers = 1

// Outcome is the result of one part's upload session.
type Outcome struct {
	Part           *network.FilePart
	ServerFilename string
	Err            error
}

// Outcomes are collected in completion order.
type Outcomes []Outcome

// FirstError returns the error of the earliest completed failed part, or nil.
func (o Outcomes) FirstError() error {
	for _, outcome := range o {
		if outcome.Err != nil {
			return outcome.Err
		}
	}
	return nil
}

// Succeeded reports whether every part was finalized.
func (o Outcomes) Succeeded() bool {
	return o.FirstError() == nil
}

// Failed returns the outcomes of the parts that were not finalized.
func (o Outcomes) Failed() Outcomes {
	var failed Outcomes
	for _, outcome := range o {
		if outcome.Err != nil {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// Scheduler runs the upload sessions of a batch of parts on a bounded pool.
type Scheduler struct {
	uploader network.PartUploader
	creds    network.Credentials
	sink     network.ProgressSink
	logger   log.Logger
}

// NewScheduler ...
func NewScheduler(uploader network.PartUploader, creds network.Credentials, sink network.ProgressSink, logger log.Logger) *Scheduler {
	return &Scheduler{
		uploader: uploader,
		creds:    creds,
		sink:     sink,
		logger:   logger,
	}
}

// UploadAll uploads every part with at most maxWorkers sessions in flight.
// A failed part is reported in its outcome only; the other sessions go on.
func (s *Scheduler) UploadAll(ctx context.Context, parts []*network.FilePart, maxWorkers int) Outcomes {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	numParts := len(parts)
	resultChan := make(chan Outcome, numParts)
	semaphore := make(chan struct{}, maxWorkers)

	for _, part := range parts {
		go func(part *network.FilePart) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			serverFilename, err := s.uploader.UploadPart(ctx, part, s.creds, s.sink)
			resultChan <- Outcome{
				Part:           part,
				ServerFilename: serverFilename,
				Err:            err,
			}
		}(part)
	}

	outcomes := make(Outcomes, 0, numParts)
	for len(outcomes) < numParts {
		outcome := <-resultChan
		if outcome.Err != nil {
			s.logger.Errorf("%s", outcome.Err)
		} else {
			s.logger.Debugf("%s finalized as %s", outcome.Part.Title, outcome.ServerFilename)
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
