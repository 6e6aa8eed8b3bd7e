package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"intv/cart"
	"intv/emu"
)

var infoStyles = struct {
	title, key, ram lipgloss.Style
}{
	title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(3)),
	key:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(4)).Width(10),
	ram:   lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(5)),
}

func printRomInfos(w io.Writer, path string) error {
	crt, err := cart.Open(path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, formatRomInfos(crt))
	return err
}

func formatRomInfos(crt *cart.Cartridge) string {
	st := infoStyles

	var sb strings.Builder
	sb.WriteString(st.title.Render(crt.Name) + "\n")
	fmt.Fprintf(&sb, "%s%s\n", st.key.Render("format"), crt.Kind)
	fmt.Fprintf(&sb, "%s%08X\n", st.key.Render("crc32"), crt.CRC32)
	fmt.Fprintf(&sb, "%s%d\n", st.key.Render("segments"), len(crt.Segments))

	for _, seg := range crt.Segments {
		line := fmt.Sprintf("  $%04X-$%04X %5d words", seg.Addr, seg.End(), len(seg.Data))
		if seg.Writable {
			line = st.ram.Render(fmt.Sprintf("%s  RAM %d-bit", line, seg.Width))
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func printStateInfo(w io.Writer, path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	state, err := emu.DecodeSnapshot(buf)
	if err != nil {
		return err
	}
	if _, err := w.Write(emu.DumpState(state)); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
