package hw

import (
	"fmt"

	"intv/hw/hwdefs"
	"intv/hw/hwio"
)

// Memory holds the console built-in RAM and boot ROMs. It is mapped as a
// whole with Table.MapBank at address 0.
type Memory struct {
	Scratch hwio.Mem `hwio:"offset=0x0100,size=0xF0,mask=0xFF"`
	System  hwio.Mem `hwio:"offset=0x0200,size=0x160"`
	Exec    hwio.Mem `hwio:"offset=0x1000,size=0x1000,readonly"`
	GROM    hwio.Mem `hwio:"offset=0x3000,size=0x800,mask=0xFF,readonly"`
	GRAM    hwio.Mem `hwio:"offset=0x3800,size=0x200,vsize=0x800,mask=0xFF"`

	bootLoaded bool
}

func NewMemory() *Memory {
	m := new(Memory)
	hwio.MustInitRegs(m)
	return m
}

// BootSizeError reports a boot ROM image of the wrong size.
type BootSizeError struct {
	ROM       string // "exec" or "grom"
	Got, Want int    // in words
}

func (e *BootSizeError) Error() string {
	return fmt.Sprintf("%s: got %d words, want %d", e.ROM, e.Got, e.Want)
}

// LoadBoot installs the executive and graphics ROMs. Both sizes are checked
// before anything is copied. On error the previous images are kept but the
// memory reports itself as not loaded.
func (m *Memory) LoadBoot(exec, grom []uint16) error {
	m.bootLoaded = false
	if len(exec) != hwdefs.ExecSize {
		return &BootSizeError{ROM: "exec", Got: len(exec), Want: hwdefs.ExecSize}
	}
	if len(grom) != hwdefs.GROMSize {
		return &BootSizeError{ROM: "grom", Got: len(grom), Want: hwdefs.GROMSize}
	}

	copy(m.Exec.Data, exec)
	for i, w := range grom {
		m.GROM.Data[i] = w & 0xFF
	}
	m.bootLoaded = true
	return nil
}

// Loaded reports whether both boot ROMs are present.
func (m *Memory) Loaded() bool {
	return m.bootLoaded
}

// ClearRAM zeroes scratchpad, system RAM and GRAM.
func (m *Memory) ClearRAM() {
	m.Scratch.Clear()
	m.System.Clear()
	m.GRAM.Clear()
}

// RAM calls fn for each writable memory area with its base address.
func (m *Memory) RAM(fn func(base uint16, data []uint16, mask uint16)) {
	fn(0x0100, m.Scratch.Data, m.Scratch.Mask)
	fn(hwdefs.BackTab, m.System.Data, m.System.Mask)
	fn(hwdefs.GRAMBase, m.GRAM.Data, m.GRAM.Mask)
}
