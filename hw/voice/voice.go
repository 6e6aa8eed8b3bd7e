// Package voice emulates the Intellivoice speech synthesizer, an SP0256 class
// chip mapped at $0080-$0081.
package voice

import (
	"fmt"

	"intv/emu/log"
	"intv/hw/audiobuf"
	"intv/hw/hwdefs"
	"intv/hw/hwio"
	"intv/hw/snapshot"
)

const (
	fifoSize  = 64
	queueSize = 8
	decles    = 9 // decles per frame

	// Status bits.
	statusLRQ    = 0x8000 // $0080: ready for a new allophone address
	statusActive = 0x4000 // $0080: speech in progress
	statusFull   = 0x8000 // $0081: decle FIFO full

	fifoReset = 0x0400
)

// BufferSize is the capacity of the sample ring.
const BufferSize = 4096

// Clock gives the current CPU cycle, so that the synthesizer can catch up
// before any register access.
type Clock interface {
	CurrentCycle() int64
}

// Frame holds the synthesis parameters for a run of samples.
type Frame struct {
	Pitch     uint16 // samples per pitch period, 0 for noise excitation
	Amplitude uint16
	Duration  uint16 // in samples
	Filter    [6][2]uint8
}

type Voice struct {
	clock Clock
	rom   []uint16

	Regs hwio.Device `hwio:"offset=0x0,size=0x2,rcb,wcb,pcb"`

	cycle int64 // last CPU cycle synthesized
	acc   int64 // rate conversion accumulator

	fifo     [fifoSize]uint16
	fifoHead int
	fifoLen  int

	ald        uint16
	aldPending bool
	romPtr     uint16
	romLeft    uint16

	queue     [queueSize]Frame
	queueHead int
	queueLen  int

	cur     Frame
	playing bool
	synth   synth

	out     *audiobuf.Ring
	romWarn bool
}

func New(clock Clock) *Voice {
	v := &Voice{
		clock: clock,
		out:   audiobuf.NewRing(BufferSize),
	}
	hwio.MustInitRegs(v)
	v.Reset()
	return v
}

// MaxROMSize is the largest speech ROM, in words, that 16-bit frame pointers
// can address.
const MaxROMSize = 0xFFFF

// LoadROM installs the speech ROM used for allophones 5 and above. See
// allophone for its layout. An oversized ROM is rejected and the previous
// one is kept.
func (v *Voice) LoadROM(rom []uint16) error {
	if len(rom) > MaxROMSize {
		return fmt.Errorf("speech ROM too large: %d words, max %d", len(rom), MaxROMSize)
	}
	v.rom = rom
	return nil
}

func (v *Voice) Reset() {
	v.cycle = 0
	v.acc = 0
	v.fifo = [fifoSize]uint16{}
	v.fifoHead, v.fifoLen = 0, 0
	v.ald, v.aldPending = 0, false
	v.romPtr, v.romLeft = 0, 0
	v.queue = [queueSize]Frame{}
	v.queueHead, v.queueLen = 0, 0
	v.cur, v.playing = Frame{}, false
	v.synth.reset()
	v.out.Reset()
}

// Active reports whether speech is being produced.
func (v *Voice) Active() bool {
	return v.playing || v.queueLen > 0 || v.aldPending
}

func (v *Voice) status(reg uint16) uint16 {
	var st uint16
	if reg == 0 {
		if !v.aldPending {
			st |= statusLRQ
		}
		if v.Active() {
			st |= statusActive
		}
		return st
	}
	if v.fifoLen == fifoSize {
		st |= statusFull
	}
	return st
}

func (v *Voice) PeekREGS(addr uint16) uint16 {
	return v.status(addr & 1)
}

func (v *Voice) ReadREGS(addr uint16) uint16 {
	v.Run()
	return v.status(addr & 1)
}

func (v *Voice) WriteREGS(addr, val uint16) {
	v.Run()

	if addr&1 == 0 {
		v.writeALD(val & 0xFF)
		return
	}

	if val&fifoReset != 0 {
		log.ModVoice.DebugZ("FIFO reset").End()
		v.fifoHead, v.fifoLen = 0, 0
		return
	}
	if v.fifoLen == fifoSize {
		log.ModVoice.DebugZ("FIFO overflow").Hex16("decle", val).End()
		return
	}
	v.fifo[(v.fifoHead+v.fifoLen)%fifoSize] = val & 0x3FF
	v.fifoLen++
	v.feed()
}

func (v *Voice) writeALD(a uint16) {
	if v.aldPending {
		log.ModVoice.DebugZ("ALD while busy").Hex16("ald", a).End()
		return
	}
	log.ModVoice.DebugZ("ALD").Hex16("ald", a).End()
	v.ald = a
	v.aldPending = true
	v.romPtr, v.romLeft = 0, 0

	if a >= uint16(len(pauses)) {
		ptr, n, ok := v.allophone(a)
		if !ok {
			if !v.romWarn {
				v.romWarn = true
				log.ModVoice.WarnZ("no speech data for allophone").Hex16("ald", a).End()
			}
			v.aldPending = false
			return
		}
		v.romPtr, v.romLeft = ptr, n
	}
	v.feed()
}

// Pause allophones, in milliseconds.
var pauses = [...]uint16{10, 30, 50, 100, 200}

// allophone looks up allophone a in the speech ROM. The ROM starts with a 256
// entries table of word offsets, each pointing at a frame count followed by
// as many 9-decle frames.
func (v *Voice) allophone(a uint16) (ptr, n uint16, ok bool) {
	if int(a) >= len(v.rom) {
		return 0, 0, false
	}
	off := v.rom[a]
	if off == 0 || int(off) >= len(v.rom) {
		return 0, 0, false
	}
	n = v.rom[off]
	if n == 0 {
		return 0, 0, false
	}
	if int(off)+1+int(n)*decles > len(v.rom) {
		log.ModVoice.WarnZ("truncated allophone").Hex16("ald", a).End()
		return 0, 0, false
	}
	return off + 1, n, true
}

// feed moves pending work (ALD, ROM frames, FIFO decles) into the frame
// queue, as long as it has room.
func (v *Voice) feed() {
	for v.queueLen < queueSize {
		switch {
		case v.aldPending && v.ald < uint16(len(pauses)):
			v.push(Frame{Duration: pauses[v.ald] * (hwdefs.VoiceRate / 1000)})
			v.aldPending = false
		case v.aldPending && v.romLeft > 0:
			var d [decles]uint16
			copy(d[:], v.rom[v.romPtr:])
			v.push(decodeFrame(d))
			v.romPtr += decles
			v.romLeft--
			if v.romLeft == 0 {
				v.aldPending = false
			}
		case v.fifoLen >= decles:
			var d [decles]uint16
			for i := range d {
				d[i] = v.fifo[v.fifoHead]
				v.fifoHead = (v.fifoHead + 1) % fifoSize
				v.fifoLen--
			}
			v.push(decodeFrame(d))
		default:
			return
		}
	}
}

func (v *Voice) push(f Frame) {
	v.queue[(v.queueHead+v.queueLen)%queueSize] = f
	v.queueLen++
}

func (v *Voice) pop() (Frame, bool) {
	if v.queueLen == 0 {
		return Frame{}, false
	}
	f := v.queue[v.queueHead]
	v.queueHead = (v.queueHead + 1) % queueSize
	v.queueLen--
	return f, true
}

// decodeFrame unpacks 9 decles:
//
//	d0     pitch period in samples, 0 selects noise
//	d1     amplitude, 5-bit mantissa and 3-bit exponent
//	d2     duration, (n+1)*32 samples
//	d3-d8  filter sections, 5-bit frequency and 5-bit bandwidth indexes
func decodeFrame(d [decles]uint16) Frame {
	f := Frame{
		Pitch:     d[0] & 0x3FF,
		Amplitude: (d[1] & 0x1F) << ((d[1] >> 5) & 7),
		Duration:  ((d[2] & 0x3FF) + 1) * 32,
	}
	for i := range f.Filter {
		f.Filter[i][0] = uint8(d[3+i]>>5) & 0x1F
		f.Filter[i][1] = uint8(d[3+i]) & 0x1F
	}
	return f
}

// Run synthesizes all samples up to the current CPU cycle.
func (v *Voice) Run() {
	now := v.clock.CurrentCycle()
	if now <= v.cycle {
		return
	}
	v.acc += (now - v.cycle) * hwdefs.VoiceRate
	v.cycle = now
	n := v.acc / hwdefs.CPUClock
	v.acc -= n * hwdefs.CPUClock
	v.GenerateSamples(int(n))
}

// GenerateSamples synthesizes count samples into the output ring.
func (v *Voice) GenerateSamples(count int) {
	for range count {
		v.out.Push(v.sample())
	}
}

// ReadSamples drains up to len(dst) buffered samples into dst.
func (v *Voice) ReadSamples(dst []int16) int {
	return v.out.Read(dst)
}

// Buffered returns the number of samples waiting to be read.
func (v *Voice) Buffered() int {
	return v.out.Len()
}

func (v *Voice) sample() int16 {
	if !v.playing {
		f, ok := v.pop()
		if !ok {
			return 0
		}
		v.cur = f
		v.playing = true
		v.synth.start()
		v.feed()
	}

	s := v.synth.next(&v.cur)
	if v.synth.pos >= v.cur.Duration {
		v.playing = false
	}
	return s
}

func (v *Voice) State() *snapshot.Voice {
	s := &snapshot.Voice{
		Cycle:      v.cycle,
		Acc:        v.acc,
		FIFO:       v.fifo,
		FIFOHead:   uint8(v.fifoHead),
		FIFOLen:    uint8(v.fifoLen),
		ALD:        v.ald,
		ALDPending: v.aldPending,
		ROMPtr:     v.romPtr,
		ROMLeft:    v.romLeft,
		QueueHead:  uint8(v.queueHead),
		QueueLen:   uint8(v.queueLen),
		Cur:        snapshot.VoiceFrame(v.cur),
		Playing:    v.playing,
		Pos:        v.synth.pos,
		PitchCount: v.synth.pitchCount,
		LFSR:       v.synth.lfsr,
		Z:          v.synth.z,
	}
	for i, f := range v.queue {
		s.Queue[i] = snapshot.VoiceFrame(f)
	}
	return s
}

// SetState restores the synthesizer state. Buffered samples are discarded.
func (v *Voice) SetState(s *snapshot.Voice) {
	v.cycle = s.Cycle
	v.acc = s.Acc
	v.fifo = s.FIFO
	v.fifoHead = int(s.FIFOHead) % fifoSize
	v.fifoLen = min(int(s.FIFOLen), fifoSize)
	v.ald = s.ALD
	v.aldPending = s.ALDPending
	v.romPtr = s.ROMPtr
	v.romLeft = s.ROMLeft
	for i, f := range s.Queue {
		v.queue[i] = Frame(f)
	}
	v.queueHead = int(s.QueueHead) % queueSize
	v.queueLen = min(int(s.QueueLen), queueSize)
	v.cur = Frame(s.Cur)
	v.playing = s.Playing
	v.synth.pos = s.Pos
	v.synth.pitchCount = s.PitchCount
	v.synth.lfsr = s.LFSR
	v.synth.z = s.Z
	v.out.Reset()
}
