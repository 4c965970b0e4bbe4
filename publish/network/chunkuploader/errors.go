package chunkuploader

import "fmt"

// TransientError is a failed chunk attempt that may succeed when retried:
// a transport error, a non-2xx status or a response without the OK flag.
type TransientError struct {
	Index      int
	StatusCode int
	Body       string
	Err        error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chunk %d: %s", e.Index+1, e.Err)
	}
	return fmt.Sprintf("chunk %d: HTTP %d: %s", e.Index+1, e.StatusCode, e.Body)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when every attempt of a chunk failed.
type ExhaustedError struct {
	Index    int
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("chunk %d failed after %d attempts: %s", e.Index+1, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
