package hw

import (
	"intv/emu/log"
	"intv/hw/hwdefs"
	"intv/hw/hwio"
	"intv/hw/snapshot"
)

// STIC register offsets.
const (
	regMOBX       = 0x00
	regMOBY       = 0x08
	regMOBA       = 0x10
	regMOBC       = 0x18
	regDisplay    = 0x20
	regMode       = 0x21
	regColorStack = 0x28
	regBorder     = 0x2C
	regHDelay     = 0x30
	regVDelay     = 0x31
	regBorderExt  = 0x32

	numMOBs = 8
)

// Bits the program can write in each register, and the value of unused bits
// when read back (always 1).
var sticRegMasks = func() (masks [0x40]struct{ w, r uint16 }) {
	for i := range masks {
		masks[i].r = 0x3FFF
	}
	for i := range numMOBs {
		masks[regMOBX+i].w = 0x07FF
		masks[regMOBX+i].r = 0x3800
		masks[regMOBY+i].w = 0x0FFF
		masks[regMOBY+i].r = 0x3000
		masks[regMOBA+i].w = 0x3FFF
		masks[regMOBA+i].r = 0x0000
		masks[regMOBC+i].w = 0x03FF
		masks[regMOBC+i].r = 0x3C00
	}
	for i := regColorStack; i <= regBorder; i++ {
		masks[i].w = 0x000F
		masks[i].r = 0x3FF0
	}
	masks[regHDelay].w, masks[regHDelay].r = 0x0007, 0x3FF8
	masks[regVDelay].w, masks[regVDelay].r = 0x0007, 0x3FF8
	masks[regBorderExt].w, masks[regBorderExt].r = 0x0003, 0x3FFC
	return masks
}()

// memPeeker gives the STIC read access to BACKTAB, GROM and GRAM.
type memPeeker interface {
	Peek16(addr uint16) uint16
}

// STIC is the video controller. It owns the framebuffer.
type STIC struct {
	mem memPeeker

	Regs hwio.Device `hwio:"offset=0x0,size=0x40,rcb,wcb,pcb"`

	regs           [0x40]uint16
	colorStackMode bool
	displayEnable  bool // handshake latch, consumed by RenderFrame

	frame []uint32
	raster
}

func NewSTIC(mem memPeeker) *STIC {
	s := &STIC{
		mem:   mem,
		frame: make([]uint32, hwdefs.ScreenWidth*hwdefs.ScreenHeight),
	}
	hwio.MustInitRegs(s)
	s.Reset()
	return s
}

func (s *STIC) Reset() {
	s.regs = [0x40]uint16{}
	s.colorStackMode = true
	s.displayEnable = false
	clear(s.frame)
}

// Frame returns the last rendered frame, 352x224 pixels in 0x00RRGGBB. It is
// overwritten by the next RenderFrame.
func (s *STIC) Frame() []uint32 {
	return s.frame
}

func (s *STIC) PeekREGS(addr uint16) uint16 {
	off := addr & 0x3F
	m := sticRegMasks[off]
	return s.regs[off]&m.w | m.r
}

func (s *STIC) ReadREGS(addr uint16) uint16 {
	off := addr & 0x3F
	if off == regMode && !s.colorStackMode {
		log.ModSTIC.DebugZ("color stack mode").End()
		s.colorStackMode = true
	}
	return s.PeekREGS(addr)
}

func (s *STIC) WriteREGS(addr, val uint16) {
	off := addr & 0x3F
	switch off {
	case regDisplay:
		s.displayEnable = true
	case regMode:
		if s.colorStackMode {
			log.ModSTIC.DebugZ("foreground/background mode").End()
		}
		s.colorStackMode = false
	}
	s.regs[off] = val & sticRegMasks[off].w
}

func (s *STIC) State() *snapshot.STIC {
	return &snapshot.STIC{
		Regs:           s.regs,
		ColorStackMode: s.colorStackMode,
		DisplayEnable:  s.displayEnable,
	}
}

func (s *STIC) SetState(state *snapshot.STIC) {
	s.regs = state.Regs
	s.colorStackMode = state.ColorStackMode
	s.displayEnable = state.DisplayEnable
}
