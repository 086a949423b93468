package ingest

import "context"

// Job is the observable handle of a background ingestion run.
type Job struct {
	DocumentID string

	done chan struct{}
	err  error
}

func newJob(documentID string) *Job {
	return &Job{DocumentID: documentID, done: make(chan struct{})}
}

func (j *Job) finish(err error) {
	j.err = err
	close(j.done)
}

// Done is closed when the run reaches a terminal outcome.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the run's outcome. It is only meaningful after Done closes.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the run finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
