package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
)

// DefaultBarWidth is the number of cells in a progress bar.
const DefaultBarWidth = 10

// Renderer prints the tracked progress as fixed-width bars.
type Renderer struct {
	tracker *Tracker
	logger  log.Logger
	width   int
}

// NewRenderer ...
func NewRenderer(tracker *Tracker, logger log.Logger) *Renderer {
	return &Renderer{
		tracker: tracker,
		logger:  logger,
		width:   DefaultBarWidth,
	}
}

// Bar formats p as `[###       ] 1/3`.
func Bar(p Progress, width int) string {
	filled := 0
	if p.Total > 0 {
		filled = p.Done * width / p.Total
	}
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %d/%d", strings.Repeat("#", filled), strings.Repeat(" ", width-filled), p.Done, p.Total)
}

// Lines returns one bar per tracked file.
func (r *Renderer) Lines() []string {
	entries := r.tracker.Snapshot()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", Bar(e.Progress, r.width), e.Title))
	}
	return lines
}

// Render prints the current bars.
func (r *Renderer) Render() {
	for _, line := range r.Lines() {
		r.logger.Printf("%s", line)
	}
}

// Run renders every interval until ctx is done, then renders a last time.
func (r *Renderer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Render()
			return
		case <-ticker.C:
			r.Render()
		}
	}
}
