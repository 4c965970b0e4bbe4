package publish

import (
	"time"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

// runTracker sends opt-in usage events. A disabled tracker drops every event.
type runTracker struct {
	tracker analytics.Tracker
	logger  log.Logger
}

func newRunTracker(runID string, enabled bool, envRepo env.Repository, logger log.Logger) runTracker {
	if !enabled {
		return runTracker{logger: logger}
	}

	p := analytics.Properties{
		"run_id":     runID,
		"build_slug": envRepo.Get("BITRISE_BUILD_SLUG"),
		"app_slug":   envRepo.Get("BITRISE_APP_SLUG"),
		"workflow":   envRepo.Get("BITRISE_TRIGGERED_WORKFLOW_ID"),
	}
	return runTracker{
		tracker: analytics.NewDefaultTracker(logger, p),
		logger:  logger,
	}
}

func (t *runTracker) enqueue(event string, properties analytics.Properties) {
	if t.tracker == nil {
		return
	}
	t.tracker.Enqueue(event, properties)
}

func (t *runTracker) logPartsUploaded(uploadTime time.Duration, outcomes Outcomes, totalBytes int64) {
	properties := analytics.Properties{
		"upload_time_s":     uploadTime.Truncate(time.Second).Seconds(),
		"upload_size_bytes": totalBytes,
		"part_count":        len(outcomes),
		"failed_part_count": len(outcomes.Failed()),
	}
	t.enqueue("mediaupload_parts_uploaded", properties)
}

func (t *runTracker) logManifestSubmitted(submitTime time.Duration, partCount int, coverRequested bool) {
	properties := analytics.Properties{
		"submit_time_s":   submitTime.Truncate(time.Second).Seconds(),
		"part_count":      partCount,
		"cover_requested": coverRequested,
	}
	t.enqueue("mediaupload_manifest_submitted", properties)
}

func (t *runTracker) wait() {
	if t.tracker == nil {
		return
	}
	t.tracker.Wait()
}
