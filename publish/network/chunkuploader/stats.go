package chunkuploader

import (
	"sync"
	"time"
)

// Stats accumulates the outcome of every chunk attempt of one file.
type Stats struct {
	mu       sync.Mutex
	snapshot StatsSnapshot
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Chunks         int
	Bytes          int64
	FailedAttempts int
	// Elapsed is the time spent in successful attempts.
	Elapsed time.Duration
	Slowest time.Duration
}

// NewStats ...
func NewStats() *Stats {
	return &Stats{}
}

// Success records a chunk of size bytes uploaded in d.
func (s *Stats) Success(size int, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Chunks++
	s.snapshot.Bytes += int64(size)
	s.snapshot.Elapsed += d
	if d > s.snapshot.Slowest {
		s.snapshot.Slowest = d
	}
}

// Fail records a failed attempt.
func (s *Stats) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.FailedAttempts++
}

// Snapshot ...
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Average is the mean duration of a successful chunk attempt.
func (s StatsSnapshot) Average() time.Duration {
	if s.Chunks == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Chunks)
}

// Throughput is the upload speed in bytes per second.
func (s StatsSnapshot) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Elapsed.Seconds()
}
