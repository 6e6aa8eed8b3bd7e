package hwio

import "intv/emu/log"

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = (1 << iota)
	WriteOnlyFlag
)

// Device is a BankIO16 implementation that allows manual management of an
// entire range of addresses. Callbacks receive the absolute bus address.
type Device struct {
	Name  string // name of the memory area (for debugging)
	Size  int    // size of the memory area
	Flags RWFlags

	ReadCb  func(addr uint16) uint16
	PeekCb  func(addr uint16) uint16
	WriteCb func(addr uint16, val uint16)
}

func (d *Device) Read16(addr uint16, peek bool) uint16 {
	if peek {
		// Peeking never triggers read side effects.
		if d.PeekCb != nil {
			return d.PeekCb(addr)
		}
		return OpenBus
	}

	switch {
	case d.Flags&WriteOnlyFlag != 0:
		log.ModHwIo.ErrorZ("invalid Read16 from writeonly device").
			String("name", d.Name).
			Hex16("addr", addr).
			End()
		fallthrough
	case d.ReadCb == nil:
		return OpenBus
	}
	return d.ReadCb(addr)
}

func (d *Device) Write16(addr uint16, val uint16) {
	switch {
	case d.Flags&ReadOnlyFlag != 0:
		log.ModHwIo.ErrorZ("invalid Write16 to readonly device").
			String("name", d.Name).
			Hex16("addr", addr).
			End()
		fallthrough
	case d.WriteCb == nil:
		return
	}

	d.WriteCb(addr, val)
}
