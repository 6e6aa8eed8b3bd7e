package hwio

import "intv/emu/log"

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlagReadOnly  MemFlags = (1 << iota) // writes are dropped
	MemFlagNoROLog                          // skip logging attempts to write when configured to readonly
)

// Mem is a linear memory area that can be mapped into a Table. VSize can be
// larger than Data, in which case the area is mirrored.
//
// Mask limits the width of stored words: the console has 8-bit, 10-bit and
// 16-bit memories sharing the same 16-bit bus. Zero means 16 bits.
type Mem struct {
	Name    string               // name of the memory area (for debugging)
	Data    []uint16             // actual memory buffer
	VSize   int                  // virtual size of the memory
	Mask    uint16               // data bits kept on write
	Flags   MemFlags             // flags determining how the memory can be accessed
	WriteCb func(uint16, uint16) // optional write callback, called after the write
}

// BankIO16 creates the adaptor mapped at base.
func (m *Mem) BankIO16(base uint16) BankIO16 {
	mask := m.Mask
	if mask == 0 {
		mask = 0xFFFF
	}
	return &mem{
		name: m.Name,
		data: m.Data,
		base: base,
		mask: mask,
		wcb:  m.WriteCb,
		ro:   m.Flags,
	}
}

// Clear zeroes the memory content.
func (m *Mem) Clear() {
	clear(m.Data)
}

type mem struct {
	name   string
	data   []uint16
	base   uint16
	mask   uint16
	wcb    func(uint16, uint16)
	ro     MemFlags
	warned bool
}

func (m *mem) off(addr uint16) int {
	off := int(addr - m.base)
	if off >= len(m.data) {
		off %= len(m.data)
	}
	return off
}

func (m *mem) Read16(addr uint16, _ bool) uint16 {
	return m.data[m.off(addr)]
}

func (m *mem) Write16(addr uint16, val uint16) {
	if m.ro&MemFlagReadOnly != 0 {
		if m.ro&MemFlagNoROLog == 0 && !m.warned {
			m.warned = true
			log.ModHwIo.DebugZ("Write16 to readonly memory").
				String("area", m.name).
				Hex16("val", val).
				Hex16("addr", addr).
				End()
		}
		return
	}
	m.data[m.off(addr)] = val & m.mask
	if m.wcb != nil {
		m.wcb(addr, val&m.mask)
	}
}
