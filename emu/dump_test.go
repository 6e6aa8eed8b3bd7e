package emu

import (
	"testing"

	"github.com/go-faster/jx"
)

func TestDumpState(t *testing.T) {
	c := newTestConsole(t, colorCycler)
	runFrames(t, c, 3)

	buf := DumpState(c.State())
	if !jx.Valid(buf) {
		t.Fatalf("invalid JSON:\n%s", buf)
	}

	var (
		frames uint64
		pc     uint16
		keys   []string
	)
	err := jx.DecodeBytes(buf).Obj(func(d *jx.Decoder, key string) error {
		keys = append(keys, key)
		switch key {
		case "flags":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "frame_count" {
					return d.Skip()
				}
				v, err := d.UInt64()
				frames = v
				return err
			})
		case "cpu":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "regs" {
					return d.Skip()
				}
				i := 0
				return d.Arr(func(d *jx.Decoder) error {
					v, err := d.UInt16()
					if i == 7 {
						pc = v
					}
					i++
					return err
				})
			})
		}
		return d.Skip()
	})
	if err != nil {
		t.Fatal(err)
	}

	if frames != 3 {
		t.Errorf("frame_count = %d, want 3", frames)
	}
	if pc != c.CPU.R[7] {
		t.Errorf("PC = %04x, want %04x", pc, c.CPU.R[7])
	}
	want := []string{"version", "cpu", "stic", "psg", "voice", "memory_sha1", "flags"}
	if len(keys) != len(want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}
