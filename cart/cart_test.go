package cart

import (
	"archive/zip"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"intv/emu/log"
	"intv/hw/hwdefs"
)

func init() {
	log.Disable()
}

func bigEndian(w []uint16) []byte {
	b := make([]byte, 0, 2*len(w))
	for _, v := range w {
		b = append(b, byte(v>>8), byte(v))
	}
	return b
}

type romSegment struct {
	lo, hi byte
	fill   uint16
}

// buildROM assembles an Intellicart image, each segment filled with
// consecutive values starting at fill.
func buildROM(t *testing.T, segs []romSegment, corruptCRC bool) []byte {
	t.Helper()
	b := []byte{0xA8, byte(len(segs)), ^byte(len(segs))}
	for _, s := range segs {
		start := len(b)
		b = append(b, s.lo, s.hi)
		n := (int(s.hi)<<8 | 0xFF) - int(s.lo)<<8 + 1
		for i := range n {
			v := s.fill + uint16(i)
			b = append(b, byte(v>>8), byte(v))
		}
		crc := crc16(b[start:])
		if corruptCRC {
			crc ^= 0xFFFF
		}
		b = append(b, byte(crc>>8), byte(crc))
	}
	return append(b, make([]byte, 16)...)
}

func TestCRC16(t *testing.T) {
	if got := crc16([]byte("123456789")); got != 0x29B1 {
		t.Errorf("crc16 = %04x, want 29b1", got)
	}
}

func TestParseIntellicart(t *testing.T) {
	for _, corrupt := range []bool{false, true} {
		data := buildROM(t, []romSegment{
			{lo: 0x50, hi: 0x6F, fill: 0x100},
			{lo: 0xD0, hi: 0xD0, fill: 0x7},
		}, corrupt)

		c, err := Parse("game.rom", data, nil)
		if err != nil {
			t.Fatalf("corrupt=%t: %v", corrupt, err)
		}
		if c.Kind != Intellicart {
			t.Errorf("Kind = %s, want %s", c.Kind, Intellicart)
		}

		type seg struct {
			Addr, End, First uint16
		}
		var got []seg
		for _, s := range c.Segments {
			got = append(got, seg{s.Addr, s.End(), s.Data[0]})
		}
		want := []seg{{0x5000, 0x6FFF, 0x100}, {0xD000, 0xD0FF, 0x7}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("segments mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestParseIntellicartErrors(t *testing.T) {
	good := buildROM(t, []romSegment{{lo: 0x50, hi: 0x50}}, false)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"truncated header", []byte{0xA8, 0x01, 0xFE, 0x50}, "truncated header"},
		{"truncated data", good[:100], "truncated data"},
		{"overlap", buildROM(t, []romSegment{{lo: 0x50, hi: 0x52}, {lo: 0x52, hi: 0x53}}, false), "overlap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("x.rom", tt.data, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got error %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParseBINDefaultMap(t *testing.T) {
	w := make([]uint16, 0x2000+0x1000+0x10)
	for i := range w {
		w[i] = uint16(i)
	}
	c, err := Parse("game.bin", bigEndian(w), nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind != RawBinary {
		t.Errorf("Kind = %s, want %s", c.Kind, RawBinary)
	}

	type seg struct{ Addr, End, First uint16 }
	var got []seg
	for _, s := range c.Segments {
		got = append(got, seg{s.Addr, s.End(), s.Data[0]})
	}
	want := []seg{
		{0x5000, 0x6FFF, 0x0000},
		{0xD000, 0xDFFF, 0x2000},
		{0xF000, 0xF00F, 0x3000},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}

	_, err = Parse("huge.bin", make([]byte, 2*0x4001), nil)
	if err == nil {
		t.Errorf("image larger than the default map: got nil error")
	}
}

func TestParseBINWithCfg(t *testing.T) {
	const cfg = `
; test cartridge
[mapping]
$0000 - $0FFF = $5000
$1000 - $17FF = $9000   ; second half

[memattr]
$D000 - $D0FF = RAM 8
$8040 - $807F = RAM 16

[vars]
name = "Test"
`
	c, err := Parse("game.bin", make([]byte, 2*0x1800), []byte(cfg))
	if err != nil {
		t.Fatal(err)
	}

	type seg struct {
		Addr, End uint16
		Writable  bool
		Mask      uint16
	}
	var got []seg
	for _, s := range c.Segments {
		got = append(got, seg{s.Addr, s.End(), s.Writable, s.Mask()})
	}
	want := []seg{
		{0x5000, 0x5FFF, false, 0xFFFF},
		{0x9000, 0x97FF, false, 0xFFFF},
		{0xD000, 0xD0FF, true, 0x00FF},
		{0x8040, 0x807F, true, 0xFFFF},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCfgErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  string
	}{
		{"missing equal", "[mapping]\n$0000 - $0FFF $5000"},
		{"bad hex", "[mapping]\n$00G0 - $0FFF = $5000"},
		{"beyond image", "[mapping]\n$0000 - $2FFF = $5000"},
		{"bad ram width", "[memattr]\n$D000 - $D0FF = RAM 12"},
		{"overlap", "[mapping]\n$0000 - $0FFF = $5000\n$0000 - $00FF = $5800"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse("x.bin", make([]byte, 0x2000), []byte(tt.cfg)); err == nil {
				t.Errorf("got nil error")
			}
		})
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	bin := bigEndian(make([]uint16, 0x100))
	cfg := []byte("[mapping]\n$0000 - $00FF = $C100\n")

	t.Run("bin with sidecar", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "side.bin"), bin)
		writeFile(t, filepath.Join(dir, "side.cfg"), cfg)
		c, err := Open(filepath.Join(dir, "side.bin"))
		if err != nil {
			t.Fatal(err)
		}
		if c.Segments[0].Addr != 0xC100 {
			t.Errorf("segment at $%04X, want $C100", c.Segments[0].Addr)
		}
	})

	t.Run("zip", func(t *testing.T) {
		path := filepath.Join(dir, "game.zip")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		zw := zip.NewWriter(f)
		for name, data := range map[string][]byte{"readme.txt": []byte("hi"), "game.bin": bin, "game.cfg": cfg} {
			w, err := zw.Create(name)
			if err != nil {
				t.Fatal(err)
			}
			w.Write(data)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		f.Close()

		c, err := Open(path)
		if err != nil {
			t.Fatal(err)
		}
		if c.Name != "game.bin" || c.Segments[0].Addr != 0xC100 {
			t.Errorf("got %s at $%04X, want game.bin at $C100", c.Name, c.Segments[0].Addr)
		}
	})

	t.Run("gzip", func(t *testing.T) {
		path := filepath.Join(dir, "plain.bin.gz")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		gw := gzip.NewWriter(f)
		gw.Name = "plain.bin"
		gw.Write(bin)
		gw.Close()
		f.Close()

		c, err := Open(path)
		if err != nil {
			t.Fatal(err)
		}
		if c.Kind != RawBinary || c.Segments[0].Addr != 0x5000 {
			t.Errorf("got %s at $%04X, want RawBinary at $5000", c.Kind, c.Segments[0].Addr)
		}
	})

	for _, name := range []string{"game.7z", "game.rar"} {
		t.Run(filepath.Ext(name)[1:], func(t *testing.T) {
			c, err := Open(filepath.Join("testdata", name))
			if err != nil {
				t.Fatal(err)
			}
			if c.Name != "game.bin" || c.Kind != RawBinary {
				t.Errorf("got %s (%s), want game.bin (RawBinary)", c.Name, c.Kind)
			}
			if c.Segments[0].Addr != 0xC100 || len(c.Segments[0].Data) != 0x100 {
				t.Errorf("segment at $%04X with %d words, want $C100 with 256 words",
					c.Segments[0].Addr, len(c.Segments[0].Data))
			}
		})
	}

	t.Run("corrupt rar", func(t *testing.T) {
		rar, err := os.ReadFile(filepath.Join("testdata", "game.rar"))
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, "bad.rar")
		writeFile(t, path, rar[:40])
		if _, err := Open(path); !errors.Is(err, ErrLoad) {
			t.Errorf("got %v, want a LoadError", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "nope.rom"))
		if !errors.Is(err, ErrLoad) {
			t.Errorf("got %v, want a LoadError", err)
		}
		var lerr *LoadError
		if !errors.As(err, &lerr) || lerr.Op != "cartridge" {
			t.Errorf("got %#v, want cartridge LoadError", err)
		}
	})
}

func TestLoadSystem(t *testing.T) {
	dir := t.TempDir()
	exec := make([]uint16, hwdefs.ExecSize)
	exec[0] = 0x0004
	writeFile(t, filepath.Join(dir, "exec.bin"), bigEndian(exec))
	grom := make([]byte, hwdefs.GROMSize)
	grom[8] = 0x3C
	writeFile(t, filepath.Join(dir, "grom.bin"), grom)

	sys, err := LoadSystem(SystemPaths{Dir: dir, Exec: "exec.bin", GROM: "grom.bin"})
	if err != nil {
		t.Fatal(err)
	}
	if sys.Exec[0] != 0x0004 || sys.GROM[8] != 0x3C || sys.Voice != nil {
		t.Errorf("unexpected system images: exec[0]=%04x grom[8]=%02x voice=%v", sys.Exec[0], sys.GROM[8], sys.Voice)
	}

	writeFile(t, filepath.Join(dir, "short.bin"), grom[:100])
	_, err = LoadSystem(SystemPaths{Dir: dir, Exec: "exec.bin", GROM: "short.bin"})
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Op != "grom" {
		t.Errorf("truncated grom: got %v, want grom LoadError", err)
	}

	_, err = LoadSystem(SystemPaths{Dir: dir, Exec: "exec.bin", GROM: "grom.bin", Voice: "missing.bin"})
	if !errors.Is(err, ErrLoad) {
		t.Errorf("missing ivoice: got %v, want LoadError", err)
	}
}
