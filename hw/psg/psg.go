// Package psg emulates the AY-3-8914 programmable sound generator.
package psg

import (
	"intv/emu/log"
	"intv/hw/audiobuf"
	"intv/hw/hwdefs"
	"intv/hw/hwio"
	"intv/hw/snapshot"
)

// Register numbers, relative to $01F0.
const (
	regToneLo    = 0x0 // channels A, B, C: 0x0-0x2
	regEnvLo     = 0x3
	regToneHi    = 0x4 // channels A, B, C: 0x4-0x6
	regEnvHi     = 0x7
	regEnable    = 0x8
	regNoise     = 0x9
	regEnvShape  = 0xA
	regVolume    = 0xB // channels A, B, C: 0xB-0xD
	regPortRight = 0xE
	regPortLeft  = 0xF
)

var regMask = [16]uint16{
	0xFF, 0xFF, 0xFF, 0xFF,
	0x0F, 0x0F, 0x0F, 0xFF,
	0xFF, 0x1F, 0x0F, 0x3F,
	0x3F, 0x3F, 0xFF, 0xFF,
}

// BufferSize is the capacity of the sample ring, a little more than 2 frames
// worth of samples.
const BufferSize = 8192

// Clock gives the current CPU cycle, so that the PSG can catch up before
// any register access.
type Clock interface {
	CurrentCycle() int64
}

type PSG struct {
	clock Clock

	Regs hwio.Device `hwio:"offset=0x0,size=0x10,rcb,wcb,pcb"`

	regs  [16]uint16
	input [2]uint8 // controller ports, active high

	cycle int64 // CPU cycle of the next sample

	tones [3]tone
	noise noise
	env   envelope

	out *audiobuf.Ring
}

func New(clock Clock) *PSG {
	p := &PSG{
		clock: clock,
		out:   audiobuf.NewRing(BufferSize),
	}
	hwio.MustInitRegs(p)
	p.Reset()
	return p
}

func (p *PSG) Reset() {
	p.regs = [16]uint16{}
	// All channels and noise disabled.
	p.regs[regEnable] = 0x3F
	p.cycle = 0
	for i := range p.tones {
		p.tones[i] = tone{}
	}
	p.noise.reset()
	p.env.reset()
	p.out.Reset()
}

// SetInput sets the state of a controller port (0: $01FE, 1: $01FF). The
// state is active high, the program reads it inverted.
func (p *PSG) SetInput(port int, state uint8) {
	p.input[port&1] = state
}

func (p *PSG) PeekREGS(addr uint16) uint16 {
	r := addr & 0xF
	switch r {
	case regPortRight, regPortLeft:
		return uint16(^p.input[r-regPortRight])
	}
	return p.regs[r]
}

func (p *PSG) ReadREGS(addr uint16) uint16 {
	p.Run()
	return p.PeekREGS(addr)
}

func (p *PSG) WriteREGS(addr, val uint16) {
	p.Run()

	r := addr & 0xF
	val &= regMask[r]
	p.regs[r] = val

	log.ModPSG.DebugZ("write").Uint8("reg", uint8(r)).Hex16("val", val).End()

	if r == regEnvShape {
		p.env.restart(uint8(val))
	}
}

func (p *PSG) tonePeriod(ch int) uint16 {
	return p.regs[regToneHi+ch]<<8 | p.regs[regToneLo+ch]
}

func (p *PSG) envPeriod() uint32 {
	return uint32(p.regs[regEnvHi])<<8 | uint32(p.regs[regEnvLo])
}

// Run generates all samples up to the current CPU cycle.
func (p *PSG) Run() {
	now := p.clock.CurrentCycle()
	if now <= p.cycle {
		return
	}
	n := (now - p.cycle + hwdefs.PSGDivider - 1) / hwdefs.PSGDivider
	p.GenerateSamples(int(n))
}

// GenerateSamples synthesizes count samples into the output ring, advancing
// the PSG clock by as many sample periods.
func (p *PSG) GenerateSamples(count int) {
	for range count {
		p.out.Push(p.sample())
		p.cycle += hwdefs.PSGDivider
	}
}

// ReadSamples drains up to len(dst) buffered samples into dst.
func (p *PSG) ReadSamples(dst []int16) int {
	return p.out.Read(dst)
}

// Buffered returns the number of samples waiting to be read.
func (p *PSG) Buffered() int {
	return p.out.Len()
}

var amplitudes = [16]int32{
	0x0000, 0x003C, 0x0055, 0x0079, 0x00AB, 0x00F1, 0x0155, 0x01E3,
	0x02AA, 0x03C5, 0x0555, 0x078B, 0x0AAB, 0x0F16, 0x1555, 0x1E2B,
}

func (p *PSG) sample() int16 {
	for ch := range p.tones {
		p.tones[ch].tick(p.tonePeriod(ch))
	}
	p.noise.tick(uint8(p.regs[regNoise]))
	p.env.tick(p.envPeriod())

	enable := p.regs[regEnable]
	var sum int32
	for ch := range p.tones {
		toneOn := enable&(1<<ch) == 0
		noiseOn := enable&(8<<ch) == 0
		if !toneOn && !noiseOn {
			continue
		}
		if toneOn && !p.tones[ch].out {
			continue
		}
		if noiseOn && !p.noise.out() {
			continue
		}
		sum += amplitudes[p.volume(ch)]
	}
	return int16(min(sum, 0x7FFF))
}

// volume returns the 4-bit amplitude of a channel, either fixed or driven by
// the envelope.
func (p *PSG) volume(ch int) uint8 {
	v := p.regs[regVolume+ch]
	mode := (v >> 4) & 3
	if mode == 0 {
		return uint8(v & 0xF)
	}
	return p.env.level() >> (mode - 1)
}

func (p *PSG) State() *snapshot.PSG {
	s := &snapshot.PSG{
		Regs:       p.regs,
		Input:      p.input,
		Cycle:      p.cycle,
		NoiseCount: p.noise.count,
		LFSR:       p.noise.lfsr,
		EnvCount:   p.env.count,
		EnvStep:    p.env.step,
		EnvAttack:  p.env.attack,
		EnvHolding: p.env.holding,
	}
	for i, t := range p.tones {
		s.ToneCount[i] = t.count
		s.ToneOut[i] = t.out
	}
	return s
}

// SetState restores the PSG state. Buffered samples are discarded.
func (p *PSG) SetState(s *snapshot.PSG) {
	p.regs = s.Regs
	p.input = s.Input
	p.cycle = s.Cycle
	for i := range p.tones {
		p.tones[i] = tone{count: s.ToneCount[i], out: s.ToneOut[i]}
	}
	p.noise.count = s.NoiseCount
	p.noise.lfsr = s.LFSR
	p.env.count = s.EnvCount
	p.env.step = s.EnvStep
	p.env.attack = s.EnvAttack
	p.env.holding = s.EnvHolding
	p.env.shape = uint8(s.Regs[regEnvShape])
	p.out.Reset()
}
