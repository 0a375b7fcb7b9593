package slotmap

import (
	"errors"
	"fmt"
)

var (
	// ErrLayoutOverflow is returned when capacity*sizeof(V) cannot be
	// represented or exceeds the largest buffer the platform can allocate.
	ErrLayoutOverflow = errors.New("slotmap: layout overflows address space")
	// ErrAllocFailed wraps an error from the off-heap allocator.
	ErrAllocFailed = errors.New("slotmap: buffer allocation failed")
	// ErrOffHeapUnsupported is returned by WithOffHeap on platforms
	// without an anonymous memory mapping API.
	ErrOffHeapUnsupported = errors.New("slotmap: off-heap buffers are not supported on this platform")
	// ErrPointerValue is returned by WithOffHeap when V contains Go
	// pointers, which the garbage collector cannot see in OS memory.
	ErrPointerValue = errors.New("slotmap: off-heap value type must be pointer-free")
	// ErrInvalidOption is returned when an option does not fit the map's types.
	ErrInvalidOption = errors.New("slotmap: invalid option")

	// ErrKeyOutOfRange reports a key that is negative or >= capacity.
	ErrKeyOutOfRange = errors.New("slotmap: key out of range")
	// ErrNoEntry reports indexed access to a vacant slot.
	ErrNoEntry = errors.New("slotmap: no entry found for key")
	// ErrFreed reports a mutation of a map whose buffer was released.
	ErrFreed = errors.New("slotmap: map has been freed")
)

// KeyError describes a failed access to a single slot. It is the panic
// value of Insert, Index and IndexPtr, and the error returned by TryInsert.
type KeyError struct {
	Key uint64 // key as passed by the caller, reinterpreted as unsigned
	Neg bool   // the key was negative
	Cap int    // capacity of the map at the time of the call
	Err error  // one of ErrKeyOutOfRange, ErrNoEntry, ErrFreed
}

func (e *KeyError) Error() string {
	if e.Neg {
		return fmt.Sprintf("%v: key -%d (capacity %d)", e.Err, -e.Key, e.Cap)
	}
	return fmt.Sprintf("%v: key %d (capacity %d)", e.Err, e.Key, e.Cap)
}

func (e *KeyError) Unwrap() error { return e.Err }
