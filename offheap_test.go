package slotmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"testing"
	"time"
	"unsafe"
)

func requireOffHeap(t *testing.T) {
	t.Helper()
	if !offHeapSupported {
		t.Skip("off-heap buffers are not supported on this platform")
	}
}

func TestPointerFree(t *testing.T) {
	type flat struct {
		a int32
		b [4]float64
		c struct{ d bool }
	}
	type nested struct {
		f flat
		s string
	}
	cases := []struct {
		v    any
		want bool
	}{
		{int(0), true},
		{uintptr(0), true},
		{complex128(0), true},
		{[8]uint16{}, true},
		{[0]*int{}, true},
		{flat{}, true},
		{struct{}{}, true},
		{"", false},
		{[]int(nil), false},
		{(*int)(nil), false},
		{map[int]int(nil), false},
		{unsafe.Pointer(nil), false},
		{[2]string{}, false},
		{nested{}, false},
		{(func())(nil), false},
		{(chan int)(nil), false},
	}
	for _, c := range cases {
		if got := pointerFree(reflect.TypeOf(c.v)); got != c.want {
			t.Fatalf("%T: got %v, want %v", c.v, got, c.want)
		}
	}
	if pointerFree(reflect.TypeOf((*any)(nil)).Elem()) {
		t.Fatalf("interface types hold pointers")
	}
}

func TestOffHeap_RejectsPointerValues(t *testing.T) {
	requireOffHeap(t)
	if _, err := New[int, string](8, WithOffHeap()); !errors.Is(err, ErrPointerValue) {
		t.Fatalf("string: got %v", err)
	}
	if _, err := New[int, struct{ p *int }](8, WithOffHeap()); !errors.Is(err, ErrPointerValue) {
		t.Fatalf("struct with pointer: got %v", err)
	}
}

func TestOffHeap_BasicOperations(t *testing.T) {
	requireOffHeap(t)
	type point struct{ x, y int32 }
	m, err := New[uint32, point](4096, WithOffHeap())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !m.Stats().OffHeap {
		t.Fatalf("expected off-heap buffer")
	}

	n := 0
	for k := uint32(0); k < 4096; k += 7 {
		m.Insert(k, point{int32(k), -int32(k)})
		n++
	}
	m.IndexPtr(7).y = 100
	if got := m.Index(7); got != (point{7, 100}) {
		t.Fatalf("index got %+v", got)
	}

	if v, ok := m.Remove(14); !ok || v != (point{14, -14}) {
		t.Fatalf("remove got %+v %v", v, ok)
	}
	if _, ok := m.Get(14); ok {
		t.Fatalf("expected removed")
	}
	if m.Len() != n-1 {
		t.Fatalf("len got %d, want %d", m.Len(), n-1)
	}

	if err := m.Free(); err != nil {
		t.Fatalf("free: %v", err)
	}
	if err := m.Free(); err != nil {
		t.Fatalf("second free: %v", err)
	}
	if !m.Stats().Freed || m.Cap() != 0 {
		t.Fatalf("expected freed, cap=%d", m.Cap())
	}
}

func TestOffHeap_FreeRunsDropHook(t *testing.T) {
	requireOffHeap(t)
	var sum int64
	m, err := New[int, int64](1024, WithOffHeap(), OnDrop(func(v int64) { sum += v }))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for k := 0; k < 1024; k++ {
		m.Insert(k, int64(k))
	}
	if err := m.Free(); err != nil {
		t.Fatalf("free: %v", err)
	}
	if sum != 1023*1024/2 {
		t.Fatalf("dropped sum got %d", sum)
	}
}

func TestOffHeap_ZeroBytesUsesHeap(t *testing.T) {
	requireOffHeap(t)
	m, err := New[int, int](0, WithOffHeap())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if m.Stats().OffHeap {
		t.Fatalf("zero-capacity map must not map memory")
	}
	if err := m.Free(); err != nil {
		t.Fatalf("free: %v", err)
	}

	z, err := New[int, struct{}](16, WithOffHeap())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	z.Insert(15, struct{}{})
	if !z.Contains(15) || z.Stats().OffHeap {
		t.Fatalf("zero-sized values: contains=%v offheap=%v", z.Contains(15), z.Stats().OffHeap)
	}
}

func TestOffHeap_Clone(t *testing.T) {
	requireOffHeap(t)
	m, err := New[int, uint64](64, WithOffHeap())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	m.Insert(3, 30)
	m.Insert(40, 400)

	c := m.Clone()
	if !c.Stats().OffHeap {
		t.Fatalf("clone must keep the off-heap backing")
	}
	if m.buf.head == c.buf.head {
		t.Fatalf("clone must own its buffer")
	}
	if err := m.Free(); err != nil {
		t.Fatalf("free: %v", err)
	}
	if c.Index(40) != 400 || c.Len() != 2 {
		t.Fatalf("clone after original freed: %d len=%d", c.Index(40), c.Len())
	}
	if err := c.Free(); err != nil {
		t.Fatalf("free clone: %v", err)
	}
}

// lockedBuffer is written by the finalizer goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Split(bytes.TrimSpace(bytes.Clone(b.buf.Bytes())), []byte("\n"))
}

func TestOffHeap_FinalizerReleasesUnfreedBuffer(t *testing.T) {
	requireOffHeap(t)
	var out lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&out, nil))

	func() {
		m, err := New[int, int64](512, WithOffHeap(), WithLogger(logger))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		m.Insert(7, 70)
	}()

	type record struct {
		Level string `json:"level"`
		Msg   string `json:"msg"`
		Live  int    `json:"live"`
		Bytes uint64 `json:"bytes"`
	}
	wantBytes := uint64(512 * unsafe.Sizeof(int64(0)))
	for i := 0; i < 200; i++ {
		runtime.GC()
		for _, line := range out.lines() {
			if len(line) == 0 {
				continue
			}
			var r record
			if err := json.Unmarshal(line, &r); err != nil {
				t.Fatalf("bad log line %q: %v", line, err)
			}
			if r.Msg != "slotmap: off-heap buffer reclaimed by finalizer without Free" {
				continue
			}
			if r.Level != "WARN" || r.Live != 1 || r.Bytes != wantBytes {
				t.Fatalf("finalizer record got %+v", r)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("finalizer did not release the buffer")
}
