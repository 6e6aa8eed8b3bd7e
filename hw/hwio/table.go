package hwio

import (
	"fmt"

	"intv/emu/log"
)

// OpenBus is the value returned when reading an address claimed by no region.
const OpenBus uint16 = 0xFFFF

// log unmapped accesses (verbose: the exec scans the whole cartridge space
// at boot)
const logUnmapped = false

type BankIO16 interface {
	// Read16 reads a word from the given address. If peek is true, the read
	// shouldn't have any side effects (debugging/tracing/snapshots).
	Read16(addr uint16, peek bool) uint16
	Write16(addr uint16, val uint16)
}

// Table is a 64K-word address space. Each address is claimed by at most one
// region; lookups are a single array index.
type Table struct {
	Name string

	ios   []region
	slots [0x10000]uint8 // index in ios, 0 means unmapped
}

type region struct {
	name       string
	begin, end uint16
	io         BankIO16
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

// Reset unmaps everything.
func (t *Table) Reset() {
	t.ios = append(t.ios[:0], region{name: "<unmapped>"})
	clear(t.slots[:])
}

// Map a register bank (that is, a structure containing multiple Mem or Device
// fields). Registers must have a struct tag "hwio" containing:
//
//	offset=0x12     Word offset within the bank at which this register is
//	                mapped. Fields without offset are not part of any bank.
//
//	bank=NN         Ordinal bank number (default 0), so that a structure can
//	                expose several banks mapped at different addresses.
//
// MapBank panics if any register overlaps an already mapped region: system
// banks are fixed and an overlap is a programming error.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Mem:
			err = t.MapMem(addr+reg.offset, r)
		case *Device:
			err = t.mapBus16(r.Name, addr+reg.offset, r.Size, r)
		default:
			err = fmt.Errorf("invalid reg type: %T", r)
		}
		if err != nil {
			panic(err)
		}
	}
}

func (t *Table) mapBus16(name string, addr uint16, size int, io BankIO16) error {
	if size <= 0 || int(addr)+size > len(t.slots) {
		return fmt.Errorf("hwio: invalid range for %s: %04X+%d", name, addr, size)
	}
	end := addr + uint16(size-1)
	if other, ok := t.Overlaps(addr, end); ok {
		return fmt.Errorf("hwio: %s [%04X-%04X] overlaps %s", name, addr, end, other)
	}
	if len(t.ios) == 0xFF {
		return fmt.Errorf("hwio: too many regions mapped on %s", t.Name)
	}

	t.ios = append(t.ios, region{name: name, begin: addr, end: end, io: io})
	idx := uint8(len(t.ios) - 1)
	for a := int(addr); a <= int(end); a++ {
		t.slots[a] = idx
	}
	return nil
}

// Overlaps reports whether any address in [begin, end] is already mapped, and
// the name of the first region found there.
func (t *Table) Overlaps(begin, end uint16) (string, bool) {
	for a := int(begin); a <= int(end); a++ {
		if idx := t.slots[a]; idx != 0 {
			return t.ios[idx].name, true
		}
	}
	return "", false
}

// MapMem maps a linear memory area at addr, spanning mem.VSize words.
func (t *Table) MapMem(addr uint16, mem *Mem) error {
	log.ModHwIo.DebugZ("mapping mem").
		Hex16("addr", addr).
		Hex16("size", uint16(mem.VSize)).
		String("area", mem.Name).
		String("bus", t.Name).
		End()

	if len(mem.Data) == 0 {
		return fmt.Errorf("hwio: empty memory area %s", mem.Name)
	}
	return t.mapBus16(mem.Name, addr, mem.VSize, mem.BankIO16(addr))
}

// MapMemorySlice maps buf at [addr, end].
func (t *Table) MapMemorySlice(name string, addr, end uint16, buf []uint16, readonly bool) error {
	var flags MemFlags
	if readonly {
		flags |= MemFlagReadOnly
	}
	return t.MapMem(addr, &Mem{
		Name:  name,
		Data:  buf,
		Flags: flags,
		VSize: int(end) - int(addr) + 1,
	})
}

// Regions calls fn for each mapped region, in mapping order.
func (t *Table) Regions(fn func(name string, begin, end uint16)) {
	for _, r := range t.ios[1:] {
		fn(r.name, r.begin, r.end)
	}
}

// Read16 forwards the read to the region mapped at addr. Reads of unmapped
// addresses return OpenBus.
func (t *Table) Read16(addr uint16, peek bool) uint16 {
	idx := t.slots[addr]
	if idx == 0 {
		if logUnmapped && !peek {
			log.ModHwIo.ErrorZ("unmapped Read16").
				String("name", t.Name).
				Hex16("addr", addr).
				End()
		}
		return OpenBus
	}
	return t.ios[idx].io.Read16(addr, peek)
}

// Peek16 is a convenience function.
func (t *Table) Peek16(addr uint16) uint16 {
	return t.Read16(addr, true)
}

// Write16 forwards the write to the region mapped at addr. Writes to unmapped
// addresses are dropped.
func (t *Table) Write16(addr uint16, val uint16) {
	idx := t.slots[addr]
	if idx == 0 {
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Write16").
				String("name", t.Name).
				Hex16("addr", addr).
				Hex16("val", val).
				End()
		}
		return
	}
	t.ios[idx].io.Write16(addr, val)
}
