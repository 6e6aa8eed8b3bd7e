// Package cart loads cartridge images: Intellicart .rom files and raw .bin
// dumps with their optional jzIntv .cfg sidecar, possibly inside an archive.
package cart

import (
	"errors"
	"fmt"
	"hash/crc32"
	"path/filepath"
	"slices"
	"strings"

	"intv/emu/log"
)

//go:generate go tool stringer -type=Kind

type Kind uint8

const (
	Intellicart Kind = iota // .rom
	RawBinary               // .bin/.int/.itv, with optional .cfg
)

// ErrLoad matches any LoadError with errors.Is.
var ErrLoad = errors.New("load error")

// LoadError reports a missing, truncated or invalid boot ROM or cartridge
// image.
type LoadError struct {
	Op   string // what was being loaded
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// Segment is a contiguous range of cartridge memory.
type Segment struct {
	Addr uint16
	Data []uint16

	// Writable segments are cartridge RAM. Width is the number of data bits
	// kept on write (8 or 16).
	Writable bool
	Width    uint8
}

// End returns the last address of the segment.
func (s Segment) End() uint16 {
	return s.Addr + uint16(len(s.Data)-1)
}

func (s Segment) Mask() uint16 {
	if s.Width == 8 {
		return 0xFF
	}
	return 0xFFFF
}

type Cartridge struct {
	Name     string
	Kind     Kind
	Segments []Segment
	CRC32    uint32 // of the cartridge file, as found in ROM databases
}

// Open loads a cartridge from path, which can be an archive.
func Open(path string) (*Cartridge, error) {
	img, err := readImage(path)
	if err != nil {
		return nil, &LoadError{Op: "cartridge", Path: path, Err: err}
	}
	c, err := Parse(img.name, img.data, img.cfg)
	if err != nil {
		return nil, &LoadError{Op: "cartridge", Path: path, Err: err}
	}
	return c, nil
}

// Parse decodes a cartridge image. The format is selected by the file name
// extension and the first byte of data. cfg is the content of a .cfg file,
// only used with raw binaries.
func Parse(name string, data, cfg []byte) (*Cartridge, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}

	c := &Cartridge{
		Name:  name,
		CRC32: crc32.ChecksumIEEE(data),
	}

	var err error
	if isIntellicart(name, data) {
		c.Kind = Intellicart
		c.Segments, err = parseROM(data)
	} else {
		c.Kind = RawBinary
		c.Segments, err = parseBIN(data, cfg)
	}
	if err != nil {
		return nil, err
	}
	if err := c.check(); err != nil {
		return nil, err
	}

	log.ModCart.InfoZ("cartridge loaded").
		String("name", c.Name).
		Stringer("kind", c.Kind).
		Int("segments", len(c.Segments)).
		Hex32("crc32", c.CRC32).
		End()
	return c, nil
}

func isIntellicart(name string, data []byte) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".bin", ".int", ".itv":
		return false
	}
	return len(data) >= 3 && (data[0] == 0xA8 || data[0] == 0x41) && data[1] == ^data[2]
}

// check rejects empty and overlapping segments.
func (c *Cartridge) check() error {
	segs := slices.Clone(c.Segments)
	slices.SortFunc(segs, func(a, b Segment) int { return int(a.Addr) - int(b.Addr) })
	for i, s := range segs {
		if len(s.Data) == 0 {
			return fmt.Errorf("empty segment at $%04X", s.Addr)
		}
		if int(s.Addr)+len(s.Data) > 0x10000 {
			return fmt.Errorf("segment at $%04X overflows the address space", s.Addr)
		}
		if i > 0 && segs[i-1].End() >= s.Addr {
			return fmt.Errorf("segments [$%04X-$%04X] and [$%04X-$%04X] overlap",
				segs[i-1].Addr, segs[i-1].End(), s.Addr, s.End())
		}
	}
	return nil
}

// words decodes big-endian 16-bit words.
func words(b []byte) []uint16 {
	w := make([]uint16, len(b)/2)
	for i := range w {
		w[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return w
}
