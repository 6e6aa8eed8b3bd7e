package hw

import (
	"fmt"
	"strings"
)

type DisasmOp struct {
	PC     uint16
	Words  []uint16
	Opcode string
	Oper   string
}

func (d DisasmOp) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04X ", d.PC)
	for i := range 3 {
		if i < len(d.Words) {
			fmt.Fprintf(&sb, " %04X", d.Words[i])
		} else {
			sb.WriteString("     ")
		}
	}
	fmt.Fprintf(&sb, "  %-5s %s", d.Opcode, d.Oper)
	return sb.String()
}

var (
	impliedNames = [8]string{"HLT", "SDBD", "EIS", "DIS", "J", "TCI", "CLRC", "SETC"}
	singleNames  = [6]string{"", "INCR", "DECR", "COMR", "NEGR", "ADCR"}
	shiftNames   = [8]string{"SWAP", "SLL", "RLC", "SLLC", "SLR", "SAR", "RRC", "SARC"}
	regNames     = [8]string{"", "", "MOVR", "ADDR", "SUBR", "CMPR", "ANDR", "XORR"}
	memNames     = [16]string{9: "MVO", 10: "MVI", 11: "ADD", 12: "SUB", 13: "CMP", 14: "AND", 15: "XOR"}
	branchNames  = [16]string{
		"B", "BC", "BOV", "BPL", "BEQ", "BLT", "BLE", "BUSC",
		"NOPP", "BNC", "BNOV", "BMI", "BNEQ", "BGE", "BGT", "BESC",
	}
)

// Disasm decodes the instruction at pc without side effects.
func (c *CPU) Disasm(pc uint16) DisasmOp {
	peek := func(off uint16) uint16 { return c.Bus.Peek16(pc + off) }

	op := peek(0)
	d := DisasmOp{PC: pc, Words: []uint16{op}}

	switch {
	case op > 0x3FF:
		d.Opcode = "???"
	case op == 0x004:
		w1, w2 := peek(1), peek(2)
		d.Words = append(d.Words, w1, w2)
		target := (w1&0xFC)<<8 | w2&0x3FF
		rr, ff := (w1>>8)&3, w1&3
		suffix := [4]string{"", "E", "D", "?"}[ff]
		if rr == 3 {
			d.Opcode = "J" + suffix
			d.Oper = fmt.Sprintf("$%04X", target)
		} else {
			d.Opcode = "JSR" + suffix
			d.Oper = fmt.Sprintf("R%d, $%04X", 4+rr, target)
		}
	case op < 0x008:
		d.Opcode = impliedNames[op]
	case op < 0x030:
		d.Opcode = singleNames[op>>3]
		d.Oper = fmt.Sprintf("R%d", op&7)
	case op < 0x034:
		d.Opcode = "GSWD"
		d.Oper = fmt.Sprintf("R%d", op&3)
	case op < 0x036:
		d.Opcode = "NOP"
	case op < 0x038:
		d.Opcode = "SIN"
	case op < 0x040:
		d.Opcode = "RSWD"
		d.Oper = fmt.Sprintf("R%d", op&7)
	case op < 0x080:
		d.Opcode = shiftNames[(op>>3)&7]
		d.Oper = fmt.Sprintf("R%d", op&3)
		if op&4 != 0 {
			d.Oper += ", 2"
		}
	case op < 0x200:
		d.Opcode = regNames[op>>6]
		d.Oper = fmt.Sprintf("R%d, R%d", (op>>3)&7, op&7)
	case op < 0x240:
		disp := peek(1)
		d.Words = append(d.Words, disp)
		next := pc + 2
		target := next + disp
		if op&0x20 != 0 {
			target = next - disp - 1
		}
		d.Opcode = branchNames[op&0xF]
		if op&0x10 != 0 {
			d.Opcode = "BEXT"
		}
		d.Oper = fmt.Sprintf("$%04X", target)
	default:
		d.Opcode, d.Oper = disasmMem(op, peek, &d)
	}
	return d
}

func disasmMem(op uint16, peek func(uint16) uint16, d *DisasmOp) (string, string) {
	name := memNames[op>>6]
	mode := (op >> 3) & 7
	r := op & 7
	mvo := op>>6 == 9

	var oper string
	switch mode {
	case 0:
		addr := peek(1)
		d.Words = append(d.Words, addr)
		oper = fmt.Sprintf("$%04X", addr)
	case 6:
		if mvo {
			return "PSHR", fmt.Sprintf("R%d", r)
		}
		if name == "MVI" {
			return "PULR", fmt.Sprintf("R%d", r)
		}
		name += "@"
		oper = "R6"
	case 7:
		imm := peek(1)
		d.Words = append(d.Words, imm)
		name += "I"
		oper = fmt.Sprintf("#$%04X", imm)
	default:
		name += "@"
		oper = fmt.Sprintf("R%d", mode)
	}

	if mvo {
		return name, fmt.Sprintf("R%d, %s", r, oper)
	}
	return name, fmt.Sprintf("%s, R%d", oper, r)
}
