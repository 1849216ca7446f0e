package incr

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc derives the value for key. It reads inputs and other derived
// queries through f and returns ErrCanceled when any of those reads does.
type ComputeFunc[K comparable, V any] func(f *Frame, key K) (V, error)

// Derived is a keyed family of memoized computations.
type Derived[K comparable, V any] struct {
	rt      *Runtime
	name    string
	compute ComputeFunc[K, V]
	equal   func(a, b V) bool

	mu     sync.Mutex
	memos  memoTable[K, V]
	flight singleflight.Group
}

type memo[V any] struct {
	value      V
	verifiedAt Revision
	changedAt  Revision
	deps       []dependency
}

// NewDerived registers a derived query on rt.
func NewDerived[K comparable, V any](rt *Runtime, name string, compute ComputeFunc[K, V]) *Derived[K, V] {
	return &Derived[K, V]{
		rt:      rt,
		name:    name,
		compute: compute,
		memos:   mapTable[K, V]{},
	}
}

// WithEqual enables backdating: when a recomputation yields a value equal to
// the previous one, the old value is kept and dependents see no change.
func (d *Derived[K, V]) WithEqual(equal func(a, b V) bool) *Derived[K, V] {
	d.equal = equal
	return d
}

// WithCapacity bounds the number of memoized keys; the least recently used
// memo is evicted first. Must be called before the first Get.
func (d *Derived[K, V]) WithCapacity(n int) *Derived[K, V] {
	if n <= 0 {
		return d
	}
	cache, err := lru.New[K, *memo[V]](n)
	if err != nil {
		panic(fmt.Sprintf("incr: %s: %v", d.name, err))
	}
	d.memos = lruTable[K, V]{cache: cache}
	return d
}

// Name returns the query name used in metrics and errors.
func (d *Derived[K, V]) Name() string {
	return d.name
}

// Get returns the value for key at f's revision and records the dependency.
func (d *Derived[K, V]) Get(f *Frame, key K) (V, error) {
	var zero V
	m, err := d.fetch(f, key)
	if err != nil {
		return zero, err
	}
	f.record(derivedDep[K, V]{q: d, key: key})
	return m.value, nil
}

func (d *Derived[K, V]) fetch(f *Frame, key K) (*memo[V], error) {
	if err := f.Canceled(); err != nil {
		return nil, d.canceled(err)
	}

	d.mu.Lock()
	old, ok := d.memos.get(key)
	d.mu.Unlock()

	if ok && old.verifiedAt == f.rev {
		memoHits.WithLabelValues(d.name).Inc()
		return old, nil
	}
	if ok && old.verifiedAt < f.rev {
		changed, err := d.depsChanged(f, old)
		if err != nil {
			return nil, d.canceled(err)
		}
		if !changed {
			memoRevalidations.WithLabelValues(d.name).Inc()
			return d.publish(key, &memo[V]{
				value:      old.value,
				verifiedAt: f.rev,
				changedAt:  old.changedAt,
				deps:       old.deps,
			}), nil
		}
	}

	v, err, _ := d.flight.Do(fmt.Sprintf("%v@%d", key, f.rev), func() (any, error) {
		return d.execute(f, key, old)
	})
	if err != nil {
		return nil, d.canceled(err)
	}
	return v.(*memo[V]), nil
}

// execute runs the computation in a child frame and publishes the result
// unless the revision moved while it ran.
func (d *Derived[K, V]) execute(f *Frame, key K, old *memo[V]) (*memo[V], error) {
	memoRecomputes.WithLabelValues(d.name).Inc()
	child := f.child()
	value, err := d.compute(child, key)
	if err != nil {
		return nil, err
	}
	if err := child.Canceled(); err != nil {
		return nil, err
	}

	m := &memo[V]{value: value, verifiedAt: f.rev, changedAt: f.rev, deps: child.deps}
	if old != nil && d.equal != nil && d.equal(old.value, value) {
		m.value = old.value
		m.changedAt = old.changedAt
	}
	return d.publish(key, m), nil
}

// publish stores m unless a memo for the same or a newer revision is already
// present, in which case that memo wins and is returned.
func (d *Derived[K, V]) publish(key K, m *memo[V]) *memo[V] {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.memos.get(key); ok && cur.verifiedAt >= m.verifiedAt {
		return cur
	}
	d.memos.put(key, m)
	return m
}

func (d *Derived[K, V]) depsChanged(f *Frame, m *memo[V]) (bool, error) {
	for _, dep := range m.deps {
		changed, err := dep.changedAfter(f, m.verifiedAt)
		if err != nil || changed {
			return changed, err
		}
	}
	return false, nil
}

func (d *Derived[K, V]) canceled(err error) error {
	if errors.Is(err, ErrCanceled) {
		memoCancellations.WithLabelValues(d.name).Inc()
	}
	return err
}

// Len returns the number of memoized keys.
func (d *Derived[K, V]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.memos.len()
}

type derivedDep[K comparable, V any] struct {
	q   *Derived[K, V]
	key K
}

func (d derivedDep[K, V]) changedAfter(f *Frame, rev Revision) (bool, error) {
	m, err := d.q.fetch(f, d.key)
	if err != nil {
		return false, err
	}
	return m.changedAt > rev, nil
}

type memoTable[K comparable, V any] interface {
	get(key K) (*memo[V], bool)
	put(key K, m *memo[V])
	len() int
}

type mapTable[K comparable, V any] map[K]*memo[V]

func (t mapTable[K, V]) get(key K) (*memo[V], bool) { m, ok := t[key]; return m, ok }
func (t mapTable[K, V]) put(key K, m *memo[V])      { t[key] = m }
func (t mapTable[K, V]) len() int                   { return len(t) }

type lruTable[K comparable, V any] struct {
	cache *lru.Cache[K, *memo[V]]
}

func (t lruTable[K, V]) get(key K) (*memo[V], bool) { return t.cache.Get(key) }
func (t lruTable[K, V]) put(key K, m *memo[V])      { t.cache.Add(key, m) }
func (t lruTable[K, V]) len() int                   { return t.cache.Len() }
