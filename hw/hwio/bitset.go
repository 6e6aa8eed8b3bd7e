package hwio

const (
	NumBits  = 0x10000 // one bit per bus address
	wordSize = 64
	numWords = NumBits / wordSize
)

// Bitset is a 64Kbit set. Zero value is an empty set (all bits cleared).
type Bitset struct {
	words [numWords]uint64
}

// Set sets the bit at index i.
func (b *Bitset) Set(i uint) {
	b.words[i/wordSize] |= 1 << (i % wordSize)
}

// Test returns true if the bit at index i is set.
func (b *Bitset) Test(i uint) bool {
	return (b.words[i/wordSize] & (1 << (i % wordSize))) != 0
}

// Reset clears all bits.
func (b *Bitset) Reset() {
	clear(b.words[:])
}

// Empty reports whether no bit is set.
func (b *Bitset) Empty() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Intersects reports whether b and o have at least one bit set in common.
func (b *Bitset) Intersects(o *Bitset) bool {
	for i := range b.words {
		if b.words[i]&o.words[i] != 0 {
			return true
		}
	}
	return false
}
