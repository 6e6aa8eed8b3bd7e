package cart

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"intv/emu/log"
)

// mapping maps a range of words of a .bin file to a bus address.
type mapping struct {
	first, last uint32 // word offsets in the file
	addr        uint16
}

// memattr declares a cartridge RAM range.
type memattr struct {
	first, last uint16
	width       uint8
}

type config struct {
	mappings []mapping
	attrs    []memattr
}

// parseCfg reads the [mapping] and [memattr] sections of a jzIntv .cfg file:
//
//	[mapping]
//	$0000 - $1FFF = $5000
//	[memattr]
//	$D000 - $D3FF = RAM 8
//
// Other sections are ignored. Comments start with ';'.
func parseCfg(data []byte) (*config, error) {
	cfg := new(config)
	section := ""

	sc := bufio.NewScanner(bytes.NewReader(data))
	for lineno := 1; sc.Scan(); lineno++ {
		line, _, _ := strings.Cut(sc.Text(), ";")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(line[1 : len(line)-1])
			continue
		}

		var err error
		switch section {
		case "mapping":
			err = cfg.parseMapping(line)
		case "memattr":
			err = cfg.parseMemattr(line)
		default:
			log.ModCart.DebugZ("ignoring cfg line").String("section", section).String("line", line).End()
		}
		if err != nil {
			return nil, fmt.Errorf("cfg line %d: %w", lineno, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseRange parses "$XXXX - $YYYY = rest".
func parseRange(line string) (first, last uint64, rest string, err error) {
	lhs, rest, ok := strings.Cut(line, "=")
	if !ok {
		return 0, 0, "", fmt.Errorf("missing '=' in %q", line)
	}
	a, b, ok := strings.Cut(lhs, "-")
	if !ok {
		return 0, 0, "", fmt.Errorf("missing '-' in %q", line)
	}
	if first, err = parseHex(a); err != nil {
		return 0, 0, "", err
	}
	if last, err = parseHex(b); err != nil {
		return 0, 0, "", err
	}
	if last < first {
		return 0, 0, "", fmt.Errorf("empty range in %q", line)
	}
	return first, last, strings.TrimSpace(rest), nil
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad hex number %q", s)
	}
	return v, nil
}

func (cfg *config) parseMapping(line string) error {
	first, last, rest, err := parseRange(line)
	if err != nil {
		return err
	}
	// Page-flipping attributes (PAGE n) aren't supported.
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return fmt.Errorf("missing address in %q", line)
	}
	addr, err := parseHex(fields[0])
	if err != nil {
		return err
	}
	if addr+(last-first) > 0xFFFF {
		return fmt.Errorf("mapping overflows the address space: %q", line)
	}
	cfg.mappings = append(cfg.mappings, mapping{first: uint32(first), last: uint32(last), addr: uint16(addr)})
	return nil
}

func (cfg *config) parseMemattr(line string) error {
	first, last, rest, err := parseRange(line)
	if err != nil {
		return err
	}
	if last > 0xFFFF {
		return fmt.Errorf("address out of range in %q", line)
	}
	fields := strings.Fields(rest)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "RAM") {
		return fmt.Errorf("unsupported memory attribute %q", rest)
	}
	width, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil || (width != 8 && width != 16) {
		return fmt.Errorf("bad RAM width %q", fields[1])
	}
	cfg.attrs = append(cfg.attrs, memattr{first: uint16(first), last: uint16(last), width: uint8(width)})
	return nil
}
