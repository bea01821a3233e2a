package pipeline

import "fmt"

// FetchError wraps a source API failure. Retried with backoff; fatal for
// the run once retries are exhausted. The window never advances on it.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// UploadError wraps a destination failure. Accepted counts the records the
// destination durably took before failing; a retry resubmits only the
// remainder.
type UploadError struct {
	Err      error
	Accepted int
}

func (e *UploadError) Error() string {
	if e.Accepted > 0 {
		return fmt.Sprintf("upload: %v (after %d records accepted)", e.Err, e.Accepted)
	}
	return "upload: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error { return e.Err }

// CommitError wraps a state-store failure after a fully successful upload.
// The uploaded rows are durable; the next run simply re-detects them as
// duplicates.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string { return "commit: " + e.Err.Error() }
func (e *CommitError) Unwrap() error { return e.Err }
