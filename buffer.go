package slotmap

import (
	"fmt"
	"reflect"
	"unsafe"
)

// buffer is the raw cell storage of a SlotMap. It owns exactly one region,
// either a Go heap array or an anonymous OS mapping, and remembers the
// Layout it was created with so the region is released with the same one.
type buffer[V any] struct {
	head   unsafe.Pointer
	layout Layout
	mapped bool // head came from sysAlloc
}

func newBuffer[V any](l Layout, offHeap bool) (buffer[V], error) {
	if offHeap {
		if !offHeapSupported {
			return buffer[V]{}, ErrOffHeapUnsupported
		}
		if t := reflect.TypeOf((*V)(nil)).Elem(); !pointerFree(t) {
			return buffer[V]{}, fmt.Errorf("%w: %v", ErrPointerValue, t)
		}
		// A zero-byte region cannot be mapped; the heap handles it for free.
		if n := l.Bytes(); n > 0 {
			p, err := sysAlloc(n)
			if err != nil {
				return buffer[V]{}, fmt.Errorf("%w: %d bytes: %w", ErrAllocFailed, n, err)
			}
			return buffer[V]{head: p, layout: l, mapped: true}, nil
		}
	}
	cells := make([]V, l.Len)
	return buffer[V]{head: unsafe.Pointer(unsafe.SliceData(cells)), layout: l}, nil
}

//go:nosplit
func (b *buffer[V]) At(i int) *V {
	return (*V)(unsafe.Add(b.head, b.layout.offset(i)))
}

// cells views the whole region as a slice.
func (b *buffer[V]) cells() []V {
	if b.head == nil {
		return nil
	}
	return unsafe.Slice((*V)(b.head), b.layout.Len)
}

func (b *buffer[V]) released() bool {
	return b.head == nil
}

// release gives the region back to its allocator. It is a no-op on an
// already released buffer.
func (b *buffer[V]) release() error {
	if b.head == nil {
		return nil
	}
	head, mapped := b.head, b.mapped
	b.head, b.mapped = nil, false
	if mapped {
		return sysFree(head, b.layout.Bytes())
	}
	return nil
}

// pointerFree reports whether values of t contain no Go pointers.
func pointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || pointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
