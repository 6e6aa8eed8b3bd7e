package psg

// noise is a 17-bit LFSR, stepped every period samples.
type noise struct {
	count uint8
	lfsr  uint32
}

func (n *noise) reset() {
	n.count = 0
	n.lfsr = 1
}

func (n *noise) tick(period uint8) {
	period = max(period, 1)
	n.count++
	if n.count < period {
		return
	}
	n.count = 0
	n.lfsr = n.lfsr>>1 | ((n.lfsr^n.lfsr>>3)&1)<<16
}

func (n *noise) out() bool {
	return n.lfsr&1 != 0
}
