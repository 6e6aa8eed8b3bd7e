package hw

import (
	"fmt"
	"io"
)

type disasmer interface {
	Disasm(pc uint16) DisasmOp
}

type tracer struct {
	d disasmer
	w io.Writer

	buf []byte
}

// write the execution trace line of the instruction about to be executed.
func (t *tracer) write(c *CPU) {
	const opLen = 48

	dis := t.d.Disasm(c.R[7])
	buf := append(t.buf[:0], dis.String()...)
	for len(buf) < opLen {
		buf = append(buf, ' ')
	}
	for i, r := range c.R {
		buf = fmt.Appendf(buf, "R%d:%04X ", i, r)
	}
	buf = fmt.Appendf(buf, "%s CYC:%d\n", c.PSW, c.Cycles)

	t.buf = buf
	t.w.Write(buf)
}
