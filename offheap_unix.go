//go:build unix

package slotmap

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const offHeapSupported = true

// sysAlloc maps n bytes of private anonymous memory. The region is page
// aligned, which satisfies the alignment of any pointer-free V.
func sysAlloc(n uintptr) (unsafe.Pointer, error) {
	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(unsafe.SliceData(b)), nil
}

// sysFree unmaps a region returned by sysAlloc. n must be the size that
// region was mapped with.
func sysFree(p unsafe.Pointer, n uintptr) error {
	return unix.Munmap(unsafe.Slice((*byte)(p), n))
}
