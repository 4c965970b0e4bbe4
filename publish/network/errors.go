package network

import (
	"errors"
	"fmt"
)

// ErrPartsNotFinalized is returned when a manifest is requested before every part was finalized.
var ErrPartsNotFinalized = errors.New("not every part has been finalized")

// HTTPError is a platform response with an unexpected status or application result.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// FatalFileError aborts the upload of a single part. Sibling parts are not affected.
type FatalFileError struct {
	Part  *FilePart
	State State
	Err   error
}

func (e *FatalFileError) Error() string {
	return fmt.Sprintf("upload of %s failed while %s: %s", e.Part, e.State, e.Err)
}

func (e *FatalFileError) Unwrap() error {
	return e.Err
}

// FatalManifestError is a failed manifest submission. It is fatal to the whole run and never retried.
type FatalManifestError struct {
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *FatalManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submit manifest: %s", e.Err)
	}
	return fmt.Sprintf("submit manifest: HTTP %d, code %d: %s", e.StatusCode, e.Code, e.Message)
}

func (e *FatalManifestError) Unwrap() error {
	return e.Err
}

// DegradedCoverError is a failed cover upload. The publish goes on without a cover.
type DegradedCoverError struct {
	Path string
	Err  error
}

func (e *DegradedCoverError) Error() string {
	return fmt.Sprintf("cover %s not used: %s", e.Path, e.Err)
}

func (e *DegradedCoverError) Unwrap() error {
	return e.Err
}
