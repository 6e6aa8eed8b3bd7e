package emu

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"intv/cart"
	"intv/hw"
	"intv/hw/hwdefs"
	"intv/hw/voice"
)

func TestRunFrameNotReady(t *testing.T) {
	c := NewConsole()
	if err := c.RunFrame(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("RunFrame() = %v, want %v", err, ErrNotReady)
	}
}

func TestLoadBootROMsErrors(t *testing.T) {
	tests := []struct {
		name       string
		exec, grom []uint16
		op         string
	}{
		{"short exec", make([]uint16, 10), testGROM(), "exec"},
		{"short grom", idle.exec(), make([]uint16, 10), "grom"},
		{"missing grom", idle.exec(), nil, "grom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsole()
			err := c.LoadBootROMs(tt.exec, tt.grom)
			if !errors.Is(err, cart.ErrLoad) {
				t.Fatalf("LoadBootROMs() = %v, want a load error", err)
			}
			var lerr *cart.LoadError
			if !errors.As(err, &lerr) || lerr.Op != tt.op {
				t.Errorf("got %v, want op %q", err, tt.op)
			}
			if err := c.RunFrame(); !errors.Is(err, ErrNotReady) {
				t.Errorf("RunFrame() = %v, want %v", err, ErrNotReady)
			}
		})
	}
}

func TestLoadBootROMsAfterRun(t *testing.T) {
	c := newTestConsole(t, colorCycler)
	runFrames(t, c, 2)
	want := c.Mem.Exec.Data[0]

	err := c.LoadBootROMs(make([]uint16, hwdefs.ExecSize), make([]uint16, 3))
	var lerr *cart.LoadError
	if !errors.As(err, &lerr) || lerr.Op != "grom" {
		t.Fatalf("LoadBootROMs() = %v, want a grom load error", err)
	}
	if err := c.RunFrame(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("RunFrame() = %v, want %v", err, ErrNotReady)
	}
	if got := c.Mem.Exec.Data[0]; got != want {
		t.Errorf("exec[0] = %04X, want %04X (previous image)", got, want)
	}

	// A valid load makes the console runnable again.
	if err := c.LoadBootROMs(colorCycler.exec(), testGROM()); err != nil {
		t.Fatal(err)
	}
	runFrames(t, c, 1)
}

func TestLoadSystemVoiceTooLarge(t *testing.T) {
	sys := &cart.System{
		Exec:  idle.exec(),
		GROM:  testGROM(),
		Voice: make([]uint16, voice.MaxROMSize+1),
	}
	err := NewConsole().LoadSystem(sys)
	var lerr *cart.LoadError
	if !errors.As(err, &lerr) || lerr.Op != "ivoice" {
		t.Errorf("LoadSystem() = %v, want an ivoice load error", err)
	}
}

func TestRunFrameDeterminism(t *testing.T) {
	const nframes = 30

	c1 := newTestConsole(t, colorCycler)
	c2 := newTestConsole(t, colorCycler)

	digests := make(map[[20]byte]bool)
	for i := range nframes {
		runFrames(t, c1, 1)
		runFrames(t, c2, 1)

		d1, d2 := c1.FrameDigest(), c2.FrameDigest()
		if d1 != d2 {
			t.Fatalf("frame %d: digests differ: %x != %x", i, d1, d2)
		}
		digests[d1] = true

		psg1, voice1 := drainAudio(c1)
		psg2, voice2 := drainAudio(c2)
		if diff := cmp.Diff(psg1, psg2); diff != "" {
			t.Fatalf("frame %d: psg samples mismatch (-c1 +c2):\n%s", i, diff)
		}
		if diff := cmp.Diff(voice1, voice2); diff != "" {
			t.Fatalf("frame %d: voice samples mismatch (-c1 +c2):\n%s", i, diff)
		}
	}
	if len(digests) < 2 {
		t.Errorf("got %d distinct frames, want more", len(digests))
	}
	if got := c1.FrameCount(); got != nframes {
		t.Errorf("FrameCount() = %d, want %d", got, nframes)
	}
}

func TestFrameTiming(t *testing.T) {
	c := newTestConsole(t, colorCycler)
	runFrames(t, c, 2)

	if got := c.CPU.Cycles; got < 2*hwdefs.FrameCycles || got > 2*hwdefs.FrameCycles+20 {
		t.Errorf("CPU cycles = %d, want ~%d", got, 2*hwdefs.FrameCycles)
	}
	// One sample every 4 cycles.
	psg, _ := drainAudio(c)
	want := int(c.CPU.Cycles+3) / hwdefs.PSGDivider
	if len(psg) != want {
		t.Errorf("got %d PSG samples, want %d", len(psg), want)
	}
	nonzero := false
	for _, s := range psg {
		if s != 0 {
			nonzero = true
			break
		}
	}
	if !nonzero {
		t.Errorf("channel A tone is silent")
	}
}

func TestResetDeterminism(t *testing.T) {
	fresh := newTestConsole(t, colorCycler)
	want := fresh.State()

	c := newTestConsole(t, colorCycler)
	runFrames(t, c, 12)
	c.SetInput(0, K5)
	c.Bus.Write16(0x0102, 0x55)
	c.Reset()
	c.SetInput(0, 0)

	if diff := cmp.Diff(want, c.State()); diff != "" {
		t.Errorf("state after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestHalt(t *testing.T) {
	prog := program{hwdefs.ResetVector: {opMVII | 0, 0x1234, opHLT}}
	c := newTestConsole(t, prog)

	err := c.RunFrame()
	var herr *hw.HaltError
	if !errors.As(err, &herr) {
		t.Fatalf("RunFrame() = %v, want a halt error", err)
	}
	want := hw.HaltError{Reason: hw.HaltInstruction, PC: 0x1002, Opcode: opHLT}
	if *herr != want {
		t.Errorf("got %+v, want %+v", *herr, want)
	}
	if _, halted := c.Halted(); !halted {
		t.Errorf("Halted() = false, want true")
	}

	// Sticky until reset.
	cycles := c.CPU.Cycles
	if err := c.RunFrame(); !errors.As(err, &herr) {
		t.Fatalf("RunFrame() = %v, want a halt error", err)
	}
	if c.CPU.Cycles != cycles || c.CPU.R[0] != 0x1234 {
		t.Errorf("halted CPU executed instructions")
	}

	c.Reset()
	if _, halted := c.Halted(); halted {
		t.Errorf("Halted() = true after reset")
	}
}

func TestInvalidOpcode(t *testing.T) {
	prog := program{hwdefs.ResetVector: {0x0034, 0x0034, 0xFFFF}}
	c := newTestConsole(t, prog)

	var herr *hw.HaltError
	if err := c.RunFrame(); !errors.As(err, &herr) {
		t.Fatalf("RunFrame() = %v, want a halt error", err)
	}
	if herr.Reason != hw.InvalidOpcode || herr.PC != 0x1002 {
		t.Errorf("got %+v, want invalid opcode at $1002", *herr)
	}
}

func TestSetInput(t *testing.T) {
	tests := []struct {
		swap        bool
		player      int
		state       uint8
		right, left uint16
	}{
		{false, 0, K1, 0x7E, 0xFF},
		{false, 1, KE, 0xFF, 0xD7},
		{true, 0, K1, 0xFF, 0x7E},
		{true, 1, KC, 0x77, 0xFF},
	}
	for _, tt := range tests {
		c := newTestConsole(t, idle)
		c.SetControllerSwap(tt.swap)
		c.SetInput(tt.player, tt.state)

		right := c.Bus.Read16(hwdefs.PSGBase+0xE, false)
		left := c.Bus.Read16(hwdefs.PSGBase+0xF, false)
		if right != tt.right || left != tt.left {
			t.Errorf("swap=%t player=%d state=%02x: ports = %02x/%02x, want %02x/%02x",
				tt.swap, tt.player, tt.state, right, left, tt.right, tt.left)
		}
	}
}

func TestLoadCartridge(t *testing.T) {
	rom := make([]uint16, 0x100)
	for i := range rom {
		rom[i] = uint16(0xA000 + i)
	}
	crt := &cart.Cartridge{
		Name: "test",
		Segments: []cart.Segment{
			{Addr: 0x5000, Data: rom},
			{Addr: 0x8000, Data: make([]uint16, 0x40), Writable: true, Width: 8},
		},
	}

	c := newTestConsole(t, idle)
	if err := c.LoadCartridge(crt); err != nil {
		t.Fatal(err)
	}

	if got := c.Bus.Peek16(0x50FF); got != 0xA0FF {
		t.Errorf("ROM[$50FF] = %04x, want A0FF", got)
	}
	c.Bus.Write16(0x5000, 0)
	if got := c.Bus.Peek16(0x5000); got != 0xA000 {
		t.Errorf("ROM[$5000] = %04x after write, want A000", got)
	}
	c.Bus.Write16(0x8010, 0x1234)
	if got := c.Bus.Peek16(0x8010); got != 0x34 {
		t.Errorf("RAM[$8010] = %04x, want 0034", got)
	}
	if crt.Segments[1].Data[0x10] != 0 {
		t.Errorf("cartridge RAM writes leaked into the cartridge image")
	}

	// Reset clears RAM but keeps the mapping.
	c.Reset()
	if got := c.Bus.Peek16(0x8010); got != 0 {
		t.Errorf("RAM[$8010] = %04x after reset, want 0", got)
	}
	if got := c.Bus.Peek16(0x5001); got != 0xA001 {
		t.Errorf("ROM[$5001] = %04x after reset, want A001", got)
	}
	runFrames(t, c, 2)
}

func TestLoadCartridgeOverlap(t *testing.T) {
	c := newTestConsole(t, idle)
	crt := &cart.Cartridge{
		Name:     "bad",
		Segments: []cart.Segment{{Addr: 0x1800, Data: make([]uint16, 0x10)}},
	}

	err := c.LoadCartridge(crt)
	var lerr *cart.LoadError
	if !errors.As(err, &lerr) || !errors.Is(err, cart.ErrLoad) {
		t.Fatalf("LoadCartridge() = %v, want a load error", err)
	}
	if c.Cartridge() != nil {
		t.Errorf("Cartridge() = %v, want nil", c.Cartridge())
	}
	if got, want := c.Bus.Peek16(hwdefs.ResetVector), uint16(opJ); got != want {
		t.Errorf("exec[$1000] = %04x, want %04x", got, want)
	}
	runFrames(t, c, 1)
}

// setMOB places a visible, interacting MOB showing the lit GROM card.
func setMOB(c *Console, i int, x, y uint16) {
	c.Bus.Write16(hwdefs.STICBase+0x00+uint16(i), 0x300|x)
	c.Bus.Write16(hwdefs.STICBase+0x08+uint16(i), y)
	c.Bus.Write16(hwdefs.STICBase+0x10+uint16(i), 1<<3|uint16(i+1))
}

func TestSpriteCollision(t *testing.T) {
	c := newTestConsole(t, idle)
	setMOB(c, 0, 40, 30)
	setMOB(c, 1, 44, 32)  // overlaps MOB 0
	setMOB(c, 2, 120, 30) // alone
	runFrames(t, c, 1)

	coll := c.Collisions()
	want := [8]uint16{0: 1 << 1, 1: 1 << 0}
	if coll != want {
		t.Errorf("Collisions() = %03x, want %03x", coll, want)
	}

	// The program sees them in the collision registers.
	for i := range 3 {
		got := c.Bus.Read16(hwdefs.STICBase+0x18+uint16(i), false) & 0x3FF
		if got != want[i] {
			t.Errorf("MOB %d collision register = %03x, want %03x", i, got, want[i])
		}
	}

	// MOB 0 has priority over MOB 1 where they overlap. The framebuffer has
	// twice the STIC resolution.
	frame := c.Frame()
	if got, want := frame[65*hwdefs.ScreenWidth+88], hw.Palette[1]; got != want {
		t.Errorf("overlap pixel = %06x, want %06x", got, want)
	}
	if got, want := frame[60*hwdefs.ScreenWidth+2*120], hw.Palette[3]; got != want {
		t.Errorf("MOB 2 pixel = %06x, want %06x", got, want)
	}
}

func TestSpriteNoCollision(t *testing.T) {
	c := newTestConsole(t, idle)
	setMOB(c, 3, 40, 30)
	setMOB(c, 4, 60, 30)
	runFrames(t, c, 1)

	if coll := c.Collisions(); coll != [8]uint16{} {
		t.Errorf("Collisions() = %03x, want none", coll)
	}
}

func TestDisplayDisabled(t *testing.T) {
	prog := program{
		hwdefs.ResetVector:     jump(0x1010),
		hwdefs.InterruptVector: {opPULR | 7},
		0x1010:                 idle[0x1010],
	}
	c := newTestConsole(t, prog)
	c.Bus.Write16(hwdefs.STICBase+0x2C, 5)
	runFrames(t, c, 1)

	for i, px := range c.Frame() {
		if px != hw.Palette[0] {
			t.Fatalf("pixel %d = %06x, want %06x", i, px, hw.Palette[0])
		}
	}
}

func BenchmarkRunFrame(b *testing.B) {
	c := newTestConsole(b, colorCycler)
	b.ReportAllocs()

	for b.Loop() {
		if err := c.RunFrame(); err != nil {
			b.Fatal(err)
		}
		drainAudio(c)
	}
}
