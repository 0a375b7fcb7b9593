//go:build windows

package slotmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const offHeapSupported = true

// sysAlloc reserves and commits n bytes of zeroed memory.
func sysAlloc(n uintptr) (unsafe.Pointer, error) {
	addr, err := windows.VirtualAlloc(0, n, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr)), nil
}

// sysFree releases a region returned by sysAlloc. MEM_RELEASE frees the
// whole reservation and requires a zero size.
func sysFree(p unsafe.Pointer, _ uintptr) error {
	return windows.VirtualFree(uintptr(p), 0, windows.MEM_RELEASE)
}
