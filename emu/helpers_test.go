package emu

import (
	"testing"

	"intv/emu/log"
	"intv/hw/hwdefs"
)

// program maps addresses in the exec ROM to machine code.
type program map[uint16][]uint16

func (p program) exec() []uint16 {
	img := make([]uint16, hwdefs.ExecSize)
	for addr, code := range p {
		copy(img[addr-hwdefs.ExecBase:], code)
	}
	return img
}

// testGROM has card 1 fully lit, all other cards are blank.
func testGROM() []uint16 {
	grom := make([]uint16, hwdefs.GROMSize)
	for i := 8; i < 16; i++ {
		grom[i] = 0xFF
	}
	return grom
}

// Some CP1610 encodings.
const (
	opHLT  = 0x0000
	opEIS  = 0x0002
	opJ    = 0x0004
	opINCR = 0x0008 // | reg
	opMVO  = 0x0240 // | src reg, then address
	opMVII = 0x02B8 // | dst reg, then value
	opPULR = 0x02B0 // | dst reg
	opBack = 0x0220 // unconditional backward branch
)

// jump encodes J addr.
func jump(addr uint16) []uint16 {
	return []uint16{opJ, 0x300 | (addr>>10)<<2, addr & 0x3FF}
}

func cat(parts ...[]uint16) []uint16 {
	var out []uint16
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// colorCycler enables interrupts then counts in R0 forever. Its interrupt
// routine enables the display, sets the background and border colors from R0
// and reads the controller ports.
var colorCycler = program{
	hwdefs.ResetVector: jump(0x1010),
	hwdefs.InterruptVector: {
		opMVO | 0, 0x0020,
		opMVO | 0, 0x0028,
		opMVO | 0, 0x002C,
		opPULR | 7,
	},
	0x1010: {
		opMVII | 6, 0x02F0,
		// Tone on channel A.
		opMVII | 1, 0x0040,
		opMVO | 1, 0x01F0,
		opMVII | 1, 0x003E,
		opMVO | 1, 0x01F8,
		opMVII | 1, 0x000C,
		opMVO | 1, 0x01FB,
		opEIS,
		// loop:
		opINCR | 0,
		opBack, 0x0002,
	},
}

// idle enables interrupts and spins. Its interrupt routine only enables the
// display.
var idle = program{
	hwdefs.ResetVector: jump(0x1010),
	hwdefs.InterruptVector: {
		opMVO | 0, 0x0020,
		opPULR | 7,
	},
	0x1010: {
		opMVII | 6, 0x02F0,
		opEIS,
		opBack, 0x0001,
	},
}

func newTestConsole(tb testing.TB, prog program) *Console {
	tb.Helper()
	log.Disable()

	c := NewConsole()
	if err := c.LoadBootROMs(prog.exec(), testGROM()); err != nil {
		tb.Fatalf("LoadBootROMs: %v", err)
	}
	return c
}

func runFrames(tb testing.TB, c *Console, n int) {
	tb.Helper()
	for i := range n {
		if err := c.RunFrame(); err != nil {
			tb.Fatalf("frame %d: %v", i, err)
		}
	}
}

// drainAudio empties the PSG and voice buffers and returns their content.
func drainAudio(c *Console) (psg, voice []int16) {
	psg = make([]int16, c.PSG.Buffered())
	psg = psg[:c.PSG.ReadSamples(psg)]
	voice = make([]int16, c.Voice.Buffered())
	voice = voice[:c.Voice.ReadSamples(voice)]
	return psg, voice
}
