package rchannel

import (
	"testing"

	"github.com/joeycumines/rchannel/plane"
)

// newTestPlane creates a *plane.Plane sized for tests and registers a
// cleanup to close it, so individual test functions don't have to.
func newTestPlane(t *testing.T) (*plane.Plane, error) {
	t.Helper()
	p, err := plane.NewSize(64)
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, nil
}
