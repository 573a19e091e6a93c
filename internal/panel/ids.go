package panel

// IDAllocator hands out panel IDs for one dashboard build, starting at 1.
type IDAllocator struct {
	last int
}

// Next returns the next ID.
func (a *IDAllocator) Next() int {
	a.last++
	return a.last
}

// Reset makes the next ID 1 again.
func (a *IDAllocator) Reset() {
	a.last = 0
}
