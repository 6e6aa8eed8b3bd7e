package hw

// PSW holds the CP1610 arithmetic flags, in the order GSWD stores them in
// bits 7-4 (and 15-12) of a register.
type PSW uint8

const (
	Carry PSW = 1 << iota
	Overflow
	Zero
	Sign
)

func (p PSW) String() string {
	const bits = "cozsCOZS"

	s := make([]byte, 4)
	for i := range 4 {
		bit := 3 - i
		set := int(p>>bit) & 1
		s[i] = bits[bit+4*set]
	}
	return string(s)
}

func (p PSW) has(flag PSW) bool {
	return p&flag == flag
}

func (p *PSW) set(flag PSW, on bool) {
	if on {
		*p |= flag
	} else {
		*p &^= flag
	}
}

// setSZ sets sign from bit 15 and zero from the whole word.
func (p *PSW) setSZ(val uint16) {
	p.set(Sign, val&0x8000 != 0)
	p.set(Zero, val == 0)
}

// setSZ8 is the variant used by right shifts and SWAP, where the sign is
// taken from bit 7.
func (p *PSW) setSZ8(val uint16) {
	p.set(Sign, val&0x0080 != 0)
	p.set(Zero, val == 0)
}

// word returns the PSW as stored by GSWD.
func (p PSW) word() uint16 {
	return uint16(p)<<12 | uint16(p)<<4
}
