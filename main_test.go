package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-faster/jx"
	"github.com/google/go-cmp/cmp"

	"intv/cart"
	"intv/emu"
)

func TestParseArgs(t *testing.T) {
	dir := t.TempDir()
	rom := filepath.Join(dir, "game.bin")
	if err := os.WriteFile(rom, make([]byte, 64), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		args []string
		mode mode
	}{
		{[]string{"run", rom}, runMode},
		{[]string{rom}, runMode},
		{[]string{"rom-infos", rom}, romInfosMode},
		{[]string{"state-info", rom}, stateInfoMode},
		{[]string{"version"}, versionMode},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			cli := parseArgs(tt.args)
			if cli.mode != tt.mode {
				t.Errorf("mode = %d, want %d", cli.mode, tt.mode)
			}
		})
	}
}

func TestParseRunFlags(t *testing.T) {
	cli := parseArgs([]string{"run", "--frames=10", "--swap", "--input=0:0x81@5", "--input=1:0@9"})

	if cli.Run.Frames != 10 {
		t.Errorf("frames = %d, want 10", cli.Run.Frames)
	}
	if !cli.Run.Swap {
		t.Errorf("swap = false, want true")
	}

	inputs, err := cli.Run.inputs()
	if err != nil {
		t.Fatal(err)
	}
	want := []emu.Input{
		{Frame: 5, Player: 0, State: 0x81},
		{Frame: 9, Player: 1, State: 0},
	}
	if diff := cmp.Diff(want, inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatRomInfos(t *testing.T) {
	crt := &cart.Cartridge{
		Name:  "game.rom",
		Kind:  cart.Intellicart,
		CRC32: 0xDEADBEEF,
		Segments: []cart.Segment{
			{Addr: 0x5000, Data: make([]uint16, 0x2000)},
			{Addr: 0xD000, Data: make([]uint16, 0x400), Writable: true, Width: 8},
		},
	}

	out := formatRomInfos(crt)
	for _, want := range []string{
		"game.rom",
		"Intellicart",
		"DEADBEEF",
		"$5000-$6FFF  8192 words",
		"$D000-$D3FF  1024 words",
		"RAM 8-bit",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output doesn't contain %q:\n%s", want, out)
		}
	}
}

func TestPrintStateInfo(t *testing.T) {
	state, err := emu.NewConsole().SaveSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "state.bin")
	if err := os.WriteFile(path, state, 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := printStateInfo(&buf, path); err != nil {
		t.Fatal(err)
	}
	if !jx.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("invalid JSON:\n%s", buf.String())
	}

	if err := os.WriteFile(path, state[:100], 0644); err != nil {
		t.Fatal(err)
	}
	if err := printStateInfo(&buf, path); err == nil {
		t.Errorf("truncated snapshot: got nil error")
	}
}
