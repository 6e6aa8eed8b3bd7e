package cart

import (
	"errors"
	"fmt"
)

// defaultMap is used for .bin files without a .cfg sidecar. The file is
// split in order across these ranges.
var defaultMap = []struct{ addr, size uint16 }{
	{0x5000, 0x2000},
	{0xD000, 0x1000},
	{0xF000, 0x1000},
}

func parseBIN(data, cfgdata []byte) ([]Segment, error) {
	if len(data)%2 != 0 {
		return nil, errors.New("odd number of bytes")
	}
	w := words(data)

	if cfgdata == nil {
		return defaultSegments(w)
	}
	cfg, err := parseCfg(cfgdata)
	if err != nil {
		return nil, err
	}
	return cfgSegments(w, cfg)
}

func defaultSegments(w []uint16) ([]Segment, error) {
	var segs []Segment
	for _, m := range defaultMap {
		if len(w) == 0 {
			break
		}
		n := min(len(w), int(m.size))
		segs = append(segs, Segment{Addr: m.addr, Data: w[:n:n]})
		w = w[n:]
	}
	if len(w) != 0 {
		return nil, fmt.Errorf("image too large for the default memory map (%d extra words)", len(w))
	}
	return segs, nil
}

func cfgSegments(w []uint16, cfg *config) ([]Segment, error) {
	var segs []Segment
	for _, m := range cfg.mappings {
		if int(m.last) >= len(w) {
			return nil, fmt.Errorf("mapping $%04X-$%04X beyond end of image ($%04X words)", m.first, m.last, len(w))
		}
		segs = append(segs, Segment{
			Addr: m.addr,
			Data: w[m.first : m.last+1 : m.last+1],
		})
	}
	for _, a := range cfg.attrs {
		segs = append(segs, Segment{
			Addr:     a.first,
			Data:     make([]uint16, int(a.last)-int(a.first)+1),
			Writable: true,
			Width:    a.width,
		})
	}
	if len(segs) == 0 {
		return nil, errors.New("cfg maps no memory")
	}
	return segs, nil
}
