package slotmap

import (
	"fmt"
	"math/bits"
	"unsafe"
)

// Layout describes the memory of a slot buffer: Len cells of Size bytes,
// each aligned to Align. The layout used to allocate a buffer is the one
// used to release it.
type Layout struct {
	Size  uintptr // bytes per slot, unsafe.Sizeof(V)
	Align uintptr // alignment of V
	Len   int     // number of slots
}

// ArrayLayout computes the Layout of n contiguous values of type V.
//
// It fails with ErrLayoutOverflow if n is negative or if the buffer would
// not fit in the address space the platform can allocate from.
func ArrayLayout[V any](n int) (Layout, error) {
	var zero V
	l := Layout{
		Size:  unsafe.Sizeof(zero),
		Align: unsafe.Alignof(zero),
		Len:   n,
	}
	if n < 0 {
		return Layout{}, fmt.Errorf("%w: negative capacity %d", ErrLayoutOverflow, n)
	}
	hi, lo := bits.Mul(uint(l.Size), uint(n))
	if hi != 0 || uintptr(lo) > maxBufferBytes {
		return Layout{}, fmt.Errorf("%w: %d slots of %d bytes", ErrLayoutOverflow, n, l.Size)
	}
	return l, nil
}

// Bytes returns the total size of the buffer.
func (l Layout) Bytes() uintptr {
	return l.Size * uintptr(l.Len)
}

//go:nosplit
func (l Layout) offset(i int) uintptr {
	return uintptr(i) * l.Size
}
