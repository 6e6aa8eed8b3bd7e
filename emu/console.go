package emu

import (
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"intv/cart"
	"intv/emu/log"
	"intv/hw"
	"intv/hw/hwdefs"
	"intv/hw/hwio"
	"intv/hw/psg"
	"intv/hw/voice"
)

// ErrNotReady is returned by RunFrame when the boot ROMs are not loaded.
var ErrNotReady = errors.New("console not ready: boot ROMs not loaded")

// Keypad codes, as read on the controller ports.
const (
	K1 uint8 = 0x81
	K2 uint8 = 0x41
	K3 uint8 = 0x21
	K4 uint8 = 0x82
	K5 uint8 = 0x42
	K6 uint8 = 0x22
	K7 uint8 = 0x84
	K8 uint8 = 0x44
	K9 uint8 = 0x24
	K0 uint8 = 0x48
	KC uint8 = 0x88 // clear
	KE uint8 = 0x28 // enter
)

// Console is a complete machine: CPU, STIC, PSG and Intellivoice around a
// single bus. Consoles are independent from each other.
type Console struct {
	Bus   *hwio.Table
	Mem   *hw.Memory
	CPU   *hw.CPU
	STIC  *hw.STIC
	PSG   *psg.PSG
	Voice *voice.Voice

	cart    *cart.Cartridge
	cartRAM []cartRAM

	controllerSwap bool
	frameCount     uint64
	frameEnd       int64 // CPU cycle at which the current frame ends
	collisions     [8]uint16
}

type cartRAM struct {
	addr uint16
	mem  *hwio.Mem
}

func NewConsole() *Console {
	bus := hwio.NewTable("bus")
	c := &Console{
		Bus: bus,
		Mem: hw.NewMemory(),
		CPU: hw.NewCPU(bus),
	}
	c.STIC = hw.NewSTIC(bus)
	c.PSG = psg.New(c.CPU)
	c.Voice = voice.New(c.CPU)
	c.mapSystem()
	return c
}

func (c *Console) mapSystem() {
	c.Bus.Reset()
	c.Bus.MapBank(0x0000, c.Mem, 0)
	c.Bus.MapBank(hwdefs.STICBase, c.STIC, 0)
	c.Bus.MapBank(hwdefs.VoiceBase, c.Voice, 0)
	c.Bus.MapBank(hwdefs.PSGBase, c.PSG, 0)
}

// LoadBootROMs installs the executive and graphics ROMs, then resets the
// console. On error the console refuses to run until a successful load.
func (c *Console) LoadBootROMs(exec, grom []uint16) error {
	if err := c.Mem.LoadBoot(exec, grom); err != nil {
		op := "boot"
		var serr *hw.BootSizeError
		if errors.As(err, &serr) {
			op = serr.ROM
		}
		return &cart.LoadError{Op: op, Err: err}
	}
	c.Reset()
	return nil
}

// LoadSystem installs the boot ROMs and, if present, the speech ROM.
func (c *Console) LoadSystem(sys *cart.System) error {
	if sys.Voice != nil {
		if err := c.Voice.LoadROM(sys.Voice); err != nil {
			return &cart.LoadError{Op: "ivoice", Err: err}
		}
	}
	return c.LoadBootROMs(sys.Exec, sys.GROM)
}

// LoadCartridge maps the cartridge segments, replacing any previously loaded
// cartridge, and resets the console. On error the console is left without
// cartridge.
func (c *Console) LoadCartridge(crt *cart.Cartridge) error {
	c.mapSystem()
	c.cart, c.cartRAM = nil, nil

	var ram []cartRAM
	for i, seg := range crt.Segments {
		m := &hwio.Mem{
			Name:  fmt.Sprintf("cart%d", i),
			Data:  seg.Data,
			VSize: len(seg.Data),
			Mask:  seg.Mask(),
		}
		if seg.Writable {
			m.Data = make([]uint16, len(seg.Data))
			ram = append(ram, cartRAM{addr: seg.Addr, mem: m})
		} else {
			m.Flags = hwio.MemFlagReadOnly
		}
		if err := c.Bus.MapMem(seg.Addr, m); err != nil {
			c.mapSystem()
			return &cart.LoadError{Op: "cartridge", Path: crt.Name, Err: err}
		}
	}

	c.cart, c.cartRAM = crt, ram
	c.Reset()
	return nil
}

// Cartridge returns the loaded cartridge, or nil.
func (c *Console) Cartridge() *cart.Cartridge {
	return c.cart
}

// Reset puts every component in its power-on state and clears RAM. Boot
// ROMs and cartridge stay mapped.
func (c *Console) Reset() {
	log.ModEmu.InfoZ("reset").End()

	c.Mem.ClearRAM()
	for _, r := range c.cartRAM {
		r.mem.Clear()
	}
	c.CPU.Reset()
	c.STIC.Reset()
	c.PSG.Reset()
	c.Voice.Reset()

	c.frameCount = 0
	c.frameEnd = 0
	c.collisions = [8]uint16{}
}

// RunFrame emulates one video frame. The STIC raises the interrupt line
// during vertical blanking, then renders the frame from the registers set up
// by the program. Sound and speech samples produced during the frame are
// left in their buffers.
//
// If the CPU is or becomes halted, RunFrame returns a *hw.HaltError.
func (c *Console) RunFrame() error {
	if !c.Mem.Loaded() {
		return ErrNotReady
	}
	if herr, halted := c.CPU.IsHalted(); halted {
		return herr
	}

	start := c.frameEnd
	c.frameEnd += hwdefs.FrameCycles

	c.CPU.SetInterrupt(true)
	c.CPU.RunUntil(start + hwdefs.VBlankCycles)
	// The request is dropped at the end of vblank if not serviced.
	c.CPU.SetInterrupt(false)

	c.collisions = c.STIC.RenderFrame()

	c.CPU.RunUntil(c.frameEnd)
	c.PSG.Run()
	c.Voice.Run()
	c.frameCount++

	if herr, halted := c.CPU.IsHalted(); halted {
		return herr
	}
	return nil
}

// Halted reports whether the CPU is halted, and why.
func (c *Console) Halted() (*hw.HaltError, bool) {
	return c.CPU.IsHalted()
}

// Frame returns the framebuffer, 352x224 pixels, 0x00RRGGBB.
func (c *Console) Frame() []uint32 {
	return c.STIC.Frame()
}

// Collisions returns the collisions detected during the last frame.
func (c *Console) Collisions() [8]uint16 {
	return c.collisions
}

// FrameCount returns the number of frames run since reset.
func (c *Console) FrameCount() uint64 {
	return c.frameCount
}

// FrameDigest returns the SHA-1 of the framebuffer content.
func (c *Console) FrameDigest() [sha1.Size]byte {
	frame := c.Frame()
	buf := make([]byte, 4*len(frame))
	for i, px := range frame {
		binary.LittleEndian.PutUint32(buf[4*i:], px)
	}
	return sha1.Sum(buf)
}

// SetInput sets the controller state of a player (0 or 1). The state is a
// disc direction, action buttons or keypad code, active high.
func (c *Console) SetInput(player int, state uint8) {
	port := player & 1
	if c.controllerSwap {
		port ^= 1
	}
	c.PSG.SetInput(port, state)
}

// SetControllerSwap exchanges the left and right controllers.
func (c *Console) SetControllerSwap(swap bool) {
	c.controllerSwap = swap
}

func (c *Console) ControllerSwap() bool {
	return c.controllerSwap
}

// SetTraceOutput enables CPU execution tracing.
func (c *Console) SetTraceOutput(w io.Writer) {
	c.CPU.SetTraceOutput(w)
}
