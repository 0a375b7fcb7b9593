//go:build !(amd64 || arm64 || loong64 || ppc64 || ppc64le || mips64 || mips64le || riscv64 || s390x)

package slotmap

// maxBufferBytes bounds a single slot buffer on 32-bit platforms and wasm.
const maxBufferBytes uintptr = 1<<31 - 1
