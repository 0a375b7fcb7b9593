package slotmap

import "github.com/bits-and-blooms/bitset"

// occupancy tracks which slots hold a live value, independently of the
// cell contents. max is the exclusive high-water mark of marked slots; it
// only moves up, except on reset.
type occupancy struct {
	bits *bitset.BitSet
	max  int
	size int
}

func newOccupancy(n int) occupancy {
	return occupancy{bits: bitset.New(uint(n))}
}

func (o *occupancy) has(i int) bool {
	return o.bits.Test(uint(i))
}

// mark sets slot i and reports whether it was already set.
func (o *occupancy) mark(i int) bool {
	if o.bits.Test(uint(i)) {
		return true
	}
	o.bits.Set(uint(i))
	o.size++
	if i >= o.max {
		o.max = i + 1
	}
	return false
}

// unmark clears slot i and reports whether it was set.
func (o *occupancy) unmark(i int) bool {
	if !o.bits.Test(uint(i)) {
		return false
	}
	o.bits.Clear(uint(i))
	o.size--
	return true
}

// each calls fn for every set slot in [0, max), in ascending order.
func (o *occupancy) each(fn func(i int)) {
	for i, ok := o.bits.NextSet(0); ok && int(i) < o.max; i, ok = o.bits.NextSet(i + 1) {
		fn(int(i))
	}
}

func (o *occupancy) reset() {
	o.bits.ClearAll()
	o.max, o.size = 0, 0
}

func (o *occupancy) clone() occupancy {
	return occupancy{bits: o.bits.Clone(), max: o.max, size: o.size}
}
