package voice

import "math"

const coefShift = 12

// coefs are the Q12 coefficients of a 2-pole section with unity DC gain:
//
//	y[n] = b0*x[n] + a1*y[n-1] + a2*y[n-2]
type coefs struct {
	a1, a2, b0 int32
}

// filterTable is indexed by frequency index then bandwidth index. Pole angle
// is pi*(f+1)/40, pole radius is 0.98-0.015*b.
var filterTable = func() (t [32][32]coefs) {
	for f := range 32 {
		theta := math.Pi * float64(f+1) / 40
		for b := range 32 {
			r := 0.98 - 0.015*float64(b)
			a1 := 2 * r * math.Cos(theta)
			a2 := -r * r
			t[f][b] = coefs{
				a1: int32(math.Round(a1 * (1 << coefShift))),
				a2: int32(math.Round(a2 * (1 << coefShift))),
				b0: int32(math.Round((1 - a1 - a2) * (1 << coefShift))),
			}
		}
	}
	return t
}()

// synth is the excitation source followed by the 6 cascaded filter sections.
type synth struct {
	pos        uint16 // samples played in the current frame
	pitchCount uint16
	lfsr       uint16
	z          [6][2]int32 // y[n-1], y[n-2] of each section
}

func (s *synth) reset() {
	*s = synth{lfsr: 1}
}

// start begins a new frame. Filter memory is kept so that consecutive
// frames join without clicks.
func (s *synth) start() {
	s.pos = 0
	s.pitchCount = 0
}

func (s *synth) excitation(f *Frame) int32 {
	amp := int32(f.Amplitude)
	if f.Pitch == 0 {
		bit := (s.lfsr ^ s.lfsr>>2 ^ s.lfsr>>3 ^ s.lfsr>>5) & 1
		s.lfsr = s.lfsr>>1 | bit<<15
		if s.lfsr&1 != 0 {
			return amp
		}
		return -amp
	}

	var exc int32
	if s.pitchCount == 0 {
		exc = amp << 3
	}
	s.pitchCount++
	if s.pitchCount >= f.Pitch {
		s.pitchCount = 0
	}
	return exc
}

func clamp16(v int32) int32 {
	return max(min(v, math.MaxInt16), math.MinInt16)
}

func (s *synth) next(f *Frame) int16 {
	x := s.excitation(f)
	for i := range s.z {
		c := &filterTable[f.Filter[i][0]&0x1F][f.Filter[i][1]&0x1F]
		z := &s.z[i]
		y := clamp16((c.b0*x + c.a1*z[0] + c.a2*z[1]) >> coefShift)
		z[1], z[0] = z[0], y
		x = y
	}
	s.pos++
	return int16(x)
}
