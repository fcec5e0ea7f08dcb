//go:build !unix

package gesture

// readiness has no descriptor on this platform; hosts poll DispatchEvents.
type readiness struct{}

func newReadiness() (*readiness, error) { return &readiness{}, nil }

func (r *readiness) fd() int      { return -1 }
func (r *readiness) signal()      {}
func (r *readiness) clear()       {}
func (r *readiness) close() error { return nil }
