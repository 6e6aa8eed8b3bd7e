package cart

import (
	"errors"
	"fmt"

	"intv/emu/log"
)

// parseROM decodes an Intellicart image:
//
//	byte 0     $A8 or $41
//	byte 1     number of segments
//	byte 2     complement of byte 1
//	segments   hi(start), hi(end), big-endian words, CRC-16 (2 bytes)
//	trailer    memory attribute table, ignored
//
// A segment spans [start<<8, end<<8|$FF]. CRC mismatches are only logged.
func parseROM(data []byte) ([]Segment, error) {
	if len(data) < 3 {
		return nil, errors.New("truncated header")
	}
	if data[1] != ^data[2] {
		return nil, fmt.Errorf("bad segment count %02x/%02x", data[1], data[2])
	}

	nseg := int(data[1])
	off := 3
	segs := make([]Segment, 0, nseg)
	for i := range nseg {
		if len(data) < off+2 {
			return nil, fmt.Errorf("segment %d: truncated header", i)
		}
		lo, hi := int(data[off])<<8, int(data[off+1])<<8|0xFF
		if hi < lo {
			return nil, fmt.Errorf("segment %d: end $%04X before start $%04X", i, hi, lo)
		}
		size := 2 * (hi - lo + 1)
		if len(data) < off+2+size+2 {
			return nil, fmt.Errorf("segment %d: truncated data", i)
		}

		want := uint16(data[off+2+size])<<8 | uint16(data[off+2+size+1])
		if got := crc16(data[off : off+2+size]); got != want {
			log.ModCart.WarnZ("segment CRC mismatch").
				Int("segment", i).
				Hex16("got", got).
				Hex16("want", want).
				End()
		}

		segs = append(segs, Segment{
			Addr: uint16(lo),
			Data: words(data[off+2 : off+2+size]),
		})
		off += 2 + size + 2
	}

	if off < len(data) {
		log.ModCart.DebugZ("ignoring attribute table").Int("bytes", len(data)-off).End()
	}
	return segs, nil
}

// crc16 is CRC-16/CCITT, polynomial $1021, initial value $FFFF.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
