// Package incr is a small incremental computation store. Inputs are written
// by a single writer and tagged with a monotonically increasing revision;
// derived queries memoize their results together with the inputs they read
// and are revalidated, reused or recomputed lazily on the next read.
//
// A read runs inside a Frame pinned to the revision current when it began.
// As soon as the frame notices a newer revision, every read in it fails with
// ErrCanceled, so a caller never observes a result that mixes two snapshots.
package incr

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrCanceled reports that a derived computation was abandoned because an
// input changed while it was running. Callers retry against the new snapshot.
var ErrCanceled = errors.New("canceled")

// Revision identifies one snapshot of all inputs.
type Revision uint64

// Runtime owns the current revision shared by every Input and Derived
// registered on it.
type Runtime struct {
	// mu is held exclusively while an input is written and the revision is
	// bumped, and shared while an input is read and the revision checked.
	mu  sync.RWMutex
	rev atomic.Uint64
}

// NewRuntime returns a Runtime at revision 1.
func NewRuntime() *Runtime {
	rt := &Runtime{}
	rt.rev.Store(1)
	return rt
}

// Revision returns the current revision.
func (rt *Runtime) Revision() Revision {
	return Revision(rt.rev.Load())
}

// Begin starts a read at the current revision.
func (rt *Runtime) Begin() *Frame {
	return &Frame{rt: rt, rev: rt.Revision()}
}

// write runs fn with the writer lock held and returns the new revision fn
// was assigned.
func (rt *Runtime) write(fn func(rev Revision)) Revision {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rev := Revision(rt.rev.Load() + 1)
	fn(rev)
	rt.rev.Store(uint64(rev))
	return rev
}

// Frame collects the dependencies of one computation. Frames are not safe
// for concurrent use; nested computations get their own child frame.
type Frame struct {
	rt   *Runtime
	rev  Revision
	deps []dependency
}

// Revision returns the revision the frame is pinned to.
func (f *Frame) Revision() Revision {
	return f.rev
}

// Canceled returns ErrCanceled once a newer revision has been committed.
// Long-running computations call it between units of work.
func (f *Frame) Canceled() error {
	if f.rt.Revision() != f.rev {
		return ErrCanceled
	}
	return nil
}

func (f *Frame) child() *Frame {
	return &Frame{rt: f.rt, rev: f.rev}
}

func (f *Frame) record(d dependency) {
	f.deps = append(f.deps, d)
}

// dependency is one input or derived value a memo was computed from.
type dependency interface {
	// changedAfter reports whether the value may have changed after rev,
	// bringing derived dependencies up to date at the frame's revision.
	changedAfter(f *Frame, rev Revision) (bool, error)
}
