package sink

import "context"

// Result tracks one object scheduled on a [Queue].
type Result struct {
	Bucket string
	Path   string
	Dest   string

	done   chan struct{}
	status int
	err    error
	cancel context.CancelFunc
}

// Done returns a channel that is closed when the object finished.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err blocks until the object finished and returns its *ObjectError, if any.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Status blocks until the object finished and returns the response status
// code, or zero when no response was received.
func (r *Result) Status() int {
	<-r.done
	return r.status
}

// Cancel aborts the download. A partially written file is removed.
func (r *Result) Cancel() {
	r.cancel()
}
