package incr

// Input is a keyed family of base values set from outside the store.
type Input[K comparable, V any] struct {
	rt    *Runtime
	name  string
	slots map[K]inputSlot[V] // guarded by rt.mu
}

type inputSlot[V any] struct {
	value     V
	changedAt Revision
}

// NewInput registers an input family on rt.
func NewInput[K comparable, V any](rt *Runtime, name string) *Input[K, V] {
	return &Input[K, V]{rt: rt, name: name, slots: make(map[K]inputSlot[V])}
}

// Set stores value under key and commits a new revision. Frames pinned to an
// older revision are canceled from this point on.
func (in *Input[K, V]) Set(key K, value V) Revision {
	return in.rt.write(func(rev Revision) {
		in.slots[key] = inputSlot[V]{value: value, changedAt: rev}
	})
}

// Get reads key inside f and records the dependency. The boolean is false
// when the key was never set.
func (in *Input[K, V]) Get(f *Frame, key K) (V, bool, error) {
	in.rt.mu.RLock()
	defer in.rt.mu.RUnlock()
	var zero V
	if err := f.Canceled(); err != nil {
		return zero, false, err
	}
	f.record(inputDep[K, V]{in: in, key: key})
	s, ok := in.slots[key]
	if !ok {
		return zero, false, nil
	}
	return s.value, true, nil
}

// Peek reads the latest value of key without a frame and without recording
// a dependency.
func (in *Input[K, V]) Peek(key K) (V, bool) {
	in.rt.mu.RLock()
	defer in.rt.mu.RUnlock()
	s, ok := in.slots[key]
	return s.value, ok
}

type inputDep[K comparable, V any] struct {
	in  *Input[K, V]
	key K
}

func (d inputDep[K, V]) changedAfter(f *Frame, rev Revision) (bool, error) {
	d.in.rt.mu.RLock()
	defer d.in.rt.mu.RUnlock()
	if err := f.Canceled(); err != nil {
		return false, err
	}
	// A key that was never set has changedAt 0 and counts as unchanged.
	return d.in.slots[d.key].changedAt > rev, nil
}
