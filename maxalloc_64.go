//go:build amd64 || arm64 || loong64 || ppc64 || ppc64le || mips64 || mips64le || riscv64 || s390x

package slotmap

// maxBufferBytes bounds a single slot buffer on 64-bit platforms.
// The runtime refuses heap objects above its address-space limit, so
// larger layouts are rejected before any allocation is attempted.
const maxBufferBytes uintptr = 1 << 47
