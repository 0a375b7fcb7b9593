package slotmap

import (
	"fmt"
	"strings"
)

// Stats returns statistics for the SlotMap. It is an O(1) operation.
func (m *SlotMap[K, V]) Stats() *SlotMapStats {
	stats := &SlotMapStats{
		Capacity:  m.Cap(),
		Size:      m.occ.size,
		Max:       m.occ.max,
		SlotSize:  m.buf.layout.Size,
		SlotAlign: m.buf.layout.Align,
		OffHeap:   m.buf.mapped,
		Freed:     m.buf.released(),
	}
	stats.VacantBelowMax = stats.Max - stats.Size
	if !stats.Freed {
		stats.Bytes = m.buf.layout.Bytes()
	}
	return stats
}

// SlotMapStats is SlotMap statistics.
//
// Warning: map statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type SlotMapStats struct {
	// Capacity is the number of slots in the buffer, zero once freed.
	Capacity int
	// Size is the number of occupied slots.
	Size int
	// Max is the high-water mark of written slots.
	Max int
	// VacantBelowMax is the number of vacant slots Clear and Free still
	// have to skip over. A large value relative to Size means keys are
	// sparse in the written range.
	VacantBelowMax int
	// SlotSize is the size in bytes of one cell.
	SlotSize uintptr
	// SlotAlign is the alignment of one cell.
	SlotAlign uintptr
	// Bytes is the size of the live buffer.
	Bytes uintptr
	// OffHeap is true if the buffer was obtained from the operating system.
	OffHeap bool
	// Freed is true after Free.
	Freed bool
}

// ToString returns string representation of map stats.
func (s *SlotMapStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("SlotMapStats{\n")
	sb.WriteString(fmt.Sprintf("Capacity:       %d\n", s.Capacity))
	sb.WriteString(fmt.Sprintf("Size:           %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("Max:            %d\n", s.Max))
	sb.WriteString(fmt.Sprintf("VacantBelowMax: %d\n", s.VacantBelowMax))
	sb.WriteString(fmt.Sprintf("SlotSize:       %d\n", s.SlotSize))
	sb.WriteString(fmt.Sprintf("SlotAlign:      %d\n", s.SlotAlign))
	sb.WriteString(fmt.Sprintf("Bytes:          %d\n", s.Bytes))
	sb.WriteString(fmt.Sprintf("OffHeap:        %t\n", s.OffHeap))
	sb.WriteString(fmt.Sprintf("Freed:          %t\n", s.Freed))
	sb.WriteString("}\n")
	return sb.String()
}
