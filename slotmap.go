// Package slotmap provides a fixed-capacity, array-backed map keyed by slot index.
package slotmap

import (
	"fmt"
	"log/slog"
	"reflect"
	"runtime"

	"golang.org/x/exp/constraints"
)

// SlotMap is a fixed-capacity associative container keyed by small
// non-negative integers. It is a faster substitute for map[K]V when the
// key domain is dense and bounded: a key is the index of a cell in one
// contiguous buffer, so every access is a bounds check, a bit test and a
// pointer offset.
//
// Key features:
//   - A single buffer of Cap() cells, allocated once by New and released
//     once by Free
//   - Occupancy is kept in a bitset beside the buffer, so V needs no
//     sentinel "empty" value and need not be comparable
//   - A high-water mark (Max) bounds the slots Clear and Free have to visit
//   - Optional off-heap storage for pointer-free values (WithOffHeap)
//   - Safe accessors (Get, GetPtr, Remove) that report absence, and strict
//     ones (Index, IndexPtr) that panic on it, like slice indexing
//
// The capacity never changes. Inserting at a key outside [0, Cap()) is a
// programming error: Insert panics and TryInsert returns an error. Memory
// outside the buffer is never touched.
//
// A SlotMap is not safe for concurrent use; callers that share one
// between goroutines must provide their own locking. A SlotMap must not be
// copied; use Clone.
type SlotMap[K constraints.Integer, V any] struct {
	_      noCopy
	buf    buffer[V]
	occ    occupancy
	cfg    Config
	onDrop func(V)
	logger *slog.Logger
}

// New creates a SlotMap with capacity slots, all vacant.
//
// Parameters:
//   - capacity: number of slots; zero is allowed
//   - WithOffHeap option to keep the buffer outside the Go heap
//   - OnDrop option to observe values released by Clear and Free
//   - WithLogger option for allocation and release logging
//
// The error wraps ErrLayoutOverflow, ErrPointerValue, ErrAllocFailed,
// ErrOffHeapUnsupported or ErrInvalidOption. No map is returned with it.
func New[K constraints.Integer, V any](
	capacity int,
	options ...func(*Config),
) (*SlotMap[K, V], error) {
	var cfg Config
	for _, opt := range options {
		opt(&cfg)
	}
	return newSlotMap[K, V](capacity, cfg)
}

// WithCapacity is like New but panics if the map cannot be created.
// Construction failure means the request cannot be satisfied at all
// (negative capacity, a buffer larger than the address space, or an
// exhausted allocator), which callers are not expected to recover from.
// A Go heap allocation that the runtime cannot satisfy aborts the process
// regardless of which constructor is used.
func WithCapacity[K constraints.Integer, V any](
	capacity int,
	options ...func(*Config),
) *SlotMap[K, V] {
	m, err := New[K, V](capacity, options...)
	if err != nil {
		panic(err)
	}
	return m
}

func newSlotMap[K constraints.Integer, V any](capacity int, cfg Config) (*SlotMap[K, V], error) {
	m := &SlotMap[K, V]{cfg: cfg, logger: cfg.Logger}
	if m.logger == nil {
		m.logger = discardLogger
	}
	if cfg.onDrop != nil {
		fn, ok := cfg.onDrop.(func(V))
		if !ok {
			return nil, fmt.Errorf("%w: OnDrop hook %T does not accept %v",
				ErrInvalidOption, cfg.onDrop, reflect.TypeOf((*V)(nil)).Elem())
		}
		m.onDrop = fn
	}

	layout, err := ArrayLayout[V](capacity)
	if err != nil {
		return nil, err
	}
	if m.buf, err = newBuffer[V](layout, cfg.OffHeap); err != nil {
		return nil, err
	}
	m.occ = newOccupancy(capacity)
	if m.buf.mapped {
		runtime.SetFinalizer(m, (*SlotMap[K, V]).finalize)
	}
	m.logger.Debug("slotmap: buffer allocated",
		"capacity", capacity,
		"bytes", layout.Bytes(),
		"offheap", m.buf.mapped,
	)
	return m, nil
}

// Len returns the number of occupied slots.
func (m *SlotMap[K, V]) Len() int {
	return m.occ.size
}

// IsZero reports whether no slot is occupied.
func (m *SlotMap[K, V]) IsZero() bool {
	return m.occ.size == 0
}

// Cap returns the number of slots. It is fixed for the life of the map
// and drops to zero once the map is freed.
func (m *SlotMap[K, V]) Cap() int {
	if m.buf.released() {
		return 0
	}
	return m.buf.layout.Len
}

// Max returns the high-water mark: one past the highest slot written since
// creation or the last Clear. Removal does not lower it.
func (m *SlotMap[K, V]) Max() int {
	return m.occ.max
}

// Layout returns the layout the buffer was allocated with.
func (m *SlotMap[K, V]) Layout() Layout {
	return m.buf.layout
}

// slot converts key to a cell index if it addresses a live buffer.
//
//go:nosplit
func (m *SlotMap[K, V]) slot(key K) (int, bool) {
	if key < 0 || uint64(key) >= uint64(m.buf.layout.Len) || m.buf.released() {
		return 0, false
	}
	return int(key), true
}

func (m *SlotMap[K, V]) keyError(key K, err error) *KeyError {
	if m.buf.released() {
		err = ErrFreed
	}
	return &KeyError{Key: uint64(key), Neg: key < 0, Cap: m.Cap(), Err: err}
}

// Insert stores value at key and returns the value it replaced, if any.
//
// Insert panics with a *KeyError wrapping ErrKeyOutOfRange if key is
// outside [0, Cap()), or ErrFreed if the map has been freed.
func (m *SlotMap[K, V]) Insert(key K, value V) (previous V, loaded bool) {
	var err error
	previous, loaded, err = m.TryInsert(key, value)
	if err != nil {
		panic(err)
	}
	return previous, loaded
}

// TryInsert is like Insert but returns the *KeyError instead of panicking.
// The map is unchanged when err is non-nil.
func (m *SlotMap[K, V]) TryInsert(key K, value V) (previous V, loaded bool, err error) {
	i, ok := m.slot(key)
	if !ok {
		return previous, false, m.keyError(key, ErrKeyOutOfRange)
	}
	p := m.buf.At(i)
	if m.occ.mark(i) {
		previous, loaded = *p, true
	}
	*p = value
	runtime.KeepAlive(m)
	return previous, loaded, nil
}

// Get returns the value stored at key. ok is false if the slot is vacant
// or key is out of range.
func (m *SlotMap[K, V]) Get(key K) (value V, ok bool) {
	if p, ok := m.GetPtr(key); ok {
		value = *p
		runtime.KeepAlive(m)
		return value, true
	}
	return value, false
}

// GetPtr returns a pointer to the value stored at key, for in-place
// updates. The pointer is valid until the slot is removed or the map is
// cleared or freed. An off-heap pointer does not keep the map alive, so the
// map must stay reachable while the pointer is used.
func (m *SlotMap[K, V]) GetPtr(key K) (*V, bool) {
	i, ok := m.slot(key)
	if !ok || !m.occ.has(i) {
		return nil, false
	}
	return m.buf.At(i), true
}

// Contains reports whether the slot at key is occupied.
func (m *SlotMap[K, V]) Contains(key K) bool {
	i, ok := m.slot(key)
	return ok && m.occ.has(i)
}

// Remove vacates the slot at key and returns the value it held. Removing
// a vacant or out-of-range key returns ok == false.
func (m *SlotMap[K, V]) Remove(key K) (value V, ok bool) {
	i, ok := m.slot(key)
	if !ok || !m.occ.unmark(i) {
		return value, false
	}
	p := m.buf.At(i)
	value = *p
	*p = *new(V)
	runtime.KeepAlive(m)
	return value, true
}

// Index returns the value at key, like m[key] on a slice. It panics with a
// *KeyError wrapping ErrNoEntry if the slot is vacant, or ErrKeyOutOfRange
// if key is outside [0, Cap()).
func (m *SlotMap[K, V]) Index(key K) V {
	value := *m.IndexPtr(key)
	runtime.KeepAlive(m)
	return value
}

// IndexPtr is the assignable form of Index:
//
//	*m.IndexPtr(1) += 55
func (m *SlotMap[K, V]) IndexPtr(key K) *V {
	i, ok := m.slot(key)
	if !ok {
		panic(m.keyError(key, ErrKeyOutOfRange))
	}
	if !m.occ.has(i) {
		panic(m.keyError(key, ErrNoEntry))
	}
	return m.buf.At(i)
}

// drain vacates every occupied slot below the high-water mark, handing
// each value to the OnDrop hook. A slot is vacated before its value reaches
// the hook, so a panicking hook leaves the remaining slots intact and the
// dropped ones vacant. The hook must not modify the map.
func (m *SlotMap[K, V]) drain() {
	var zero V
	m.occ.each(func(i int) {
		p := m.buf.At(i)
		v := *p
		*p = zero
		m.occ.unmark(i)
		if m.onDrop != nil {
			m.onDrop(v)
		}
	})
	m.occ.reset()
}

// Clear drops every value and resets the high-water mark. The buffer is
// kept.
func (m *SlotMap[K, V]) Clear() {
	live := m.occ.size
	m.drain()
	m.logger.Debug("slotmap: cleared", "capacity", m.Cap(), "live", live)
}

// Free drops every value and releases the buffer with the layout it was
// allocated with. It is safe to call more than once; calls after the
// first do nothing. A freed map reports no entries and a capacity of zero,
// and Insert panics on it with ErrFreed.
//
// If an OnDrop hook panics, the buffer is still released and the panic is
// propagated; values not yet handed to the hook are discarded without it.
//
// Heap buffers are reclaimed by the garbage collector once the map is
// unreachable, so Free is only needed to run OnDrop hooks or to return
// off-heap memory promptly.
func (m *SlotMap[K, V]) Free() (err error) {
	if m.buf.released() {
		return nil
	}
	live := m.occ.size
	defer func() {
		err = m.release(live)
	}()
	m.drain()
	return nil
}

func (m *SlotMap[K, V]) release(live int) error {
	m.occ.reset()
	if m.buf.mapped {
		runtime.SetFinalizer(m, nil)
	}
	offHeap, bytes := m.buf.mapped, m.buf.layout.Bytes()
	if err := m.buf.release(); err != nil {
		m.logger.Error("slotmap: buffer release failed", "bytes", bytes, "error", err)
		return fmt.Errorf("slotmap: release %d bytes: %w", bytes, err)
	}
	m.logger.Debug("slotmap: buffer released",
		"capacity", m.buf.layout.Len,
		"bytes", bytes,
		"offheap", offHeap,
		"live", live,
	)
	return nil
}

// finalize returns an off-heap buffer that was never freed.
// OnDrop hooks are not run from here.
func (m *SlotMap[K, V]) finalize() {
	bytes, live := m.buf.layout.Bytes(), m.occ.size
	if err := m.buf.release(); err != nil {
		m.logger.Error("slotmap: finalizer release failed", "bytes", bytes, "error", err)
		return
	}
	m.logger.Warn("slotmap: off-heap buffer reclaimed by finalizer without Free",
		"bytes", bytes,
		"live", live,
	)
}

// Clone creates a deep copy of the map in a newly allocated buffer of the
// same capacity and backing. Values are copied by assignment; the clone
// shares the OnDrop hook and logger. Cloning a freed map yields an empty
// map of capacity zero.
//
// Clone panics if the buffer cannot be allocated, like WithCapacity.
func (m *SlotMap[K, V]) Clone() *SlotMap[K, V] {
	c, err := newSlotMap[K, V](m.Cap(), m.cfg)
	if err != nil {
		panic(err)
	}
	if n := m.occ.max; n > 0 {
		copy(c.buf.cells()[:n], m.buf.cells()[:n])
		c.occ = m.occ.clone()
	}
	return c
}

// noCopy may be embedded into structs which must not be copied
// after the first use. See https://golang.org/issues/8005#issuecomment-190753527
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
