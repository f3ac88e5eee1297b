package runner

import "fmt"

// JobFailedError reports a job whose status classified as failed. It
// carries the failing status text and the last payload the server sent.
type JobFailedError struct {
	Status  string
	Payload map[string]any
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job failed with status %q", e.Status)
}

// JobTimeoutError reports a job that exhausted its poll budget without a
// terminal classification.
type JobTimeoutError struct {
	Attempts int
	MaxPolls int
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("job did not finish after %d of %d polls", e.Attempts, e.MaxPolls)
}
