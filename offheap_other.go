//go:build !unix && !windows

package slotmap

import "unsafe"

const offHeapSupported = false

func sysAlloc(uintptr) (unsafe.Pointer, error) {
	return nil, ErrOffHeapUnsupported
}

func sysFree(unsafe.Pointer, uintptr) error {
	return ErrOffHeapUnsupported
}
