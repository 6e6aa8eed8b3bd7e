package psg

// Envelope shape bits.
const (
	envHold      = 1 << 0
	envAlternate = 1 << 1
	envAttack    = 1 << 2
	envContinue  = 1 << 3
)

// envelope generates a 16 level ramp, stepped every 2*period samples. The
// level is step XOR attack: step counts down from 15, attack is 0 for a
// decay and 15 for an attack.
type envelope struct {
	shape   uint8
	count   uint32
	step    int8
	attack  uint8
	holding bool
}

func (e *envelope) reset() {
	e.restart(0)
}

func (e *envelope) restart(shape uint8) {
	e.shape = shape & 0xF
	e.count = 0
	e.step = 15
	e.holding = false
	e.attack = 0
	if e.shape&envAttack != 0 {
		e.attack = 0xF
	}
}

func (e *envelope) level() uint8 {
	return uint8(e.step) ^ e.attack
}

func (e *envelope) tick(period uint32) {
	if e.holding {
		return
	}
	e.count++
	if e.count < 2*max(period, 1) {
		return
	}
	e.count = 0

	e.step--
	if e.step >= 0 {
		return
	}

	switch {
	case e.shape&envContinue == 0:
		e.holding = true
		e.step = 0
		e.attack = 0
	case e.shape&envHold != 0:
		e.holding = true
		e.step = 0
		if e.shape&envAlternate != 0 {
			e.attack ^= 0xF
		}
	default:
		e.step = 15
		if e.shape&envAlternate != 0 {
			e.attack ^= 0xF
		}
	}
}
