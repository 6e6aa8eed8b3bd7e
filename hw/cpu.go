package hw

import (
	"io"

	"intv/emu/log"
	"intv/hw/hwdefs"
	"intv/hw/hwio"
	"intv/hw/snapshot"
)

// CPU is a CP1610 core. It only talks to the rest of the console through
// its bus.
type CPU struct {
	Bus *hwio.Table

	// R6 is the stack pointer, R7 the program counter.
	R   [8]uint16
	PSW PSW

	Cycles int64 // CPU cycles since reset

	intrEnabled   bool // I flag
	sdbd          bool // D flag, only valid for the instruction following SDBD
	intrq         bool // interrupt request line
	interruptible bool // the last instruction can be followed by an interrupt

	halted  bool
	haltErr HaltError
	opPC    uint16 // address of the instruction being executed

	// Non-nil when execution tracing is enabled.
	tracer *tracer
}

// NewCPU creates a CPU attached to bus, at power-up state.
func NewCPU(bus *hwio.Table) *CPU {
	c := &CPU{Bus: bus}
	c.Reset()
	return c
}

// Reset puts the CPU in its power-on state, ready to execute from the reset
// vector.
func (c *CPU) Reset() {
	c.R = [8]uint16{}
	c.R[7] = hwdefs.ResetVector
	c.PSW = 0
	c.Cycles = 0
	c.intrEnabled = false
	c.sdbd = false
	c.intrq = false
	c.interruptible = false
	c.halted = false
	c.haltErr = HaltError{}
}

// SetTraceOutput enables the execution trace on w, or disables it if w is
// nil.
func (c *CPU) SetTraceOutput(w io.Writer) {
	if w == nil {
		c.tracer = nil
		return
	}
	c.tracer = &tracer{d: c, w: w}
}

// SetInterrupt drives the interrupt request line.
func (c *CPU) SetInterrupt(on bool) {
	c.intrq = on
}

// InterruptPending reports whether the interrupt request line is still up.
func (c *CPU) InterruptPending() bool {
	return c.intrq
}

// IsHalted reports whether the CPU is halted, and why.
func (c *CPU) IsHalted() (*HaltError, bool) {
	if !c.halted {
		return nil, false
	}
	err := c.haltErr
	return &err, true
}

// CurrentCycle returns the number of cycles executed since reset. Devices use
// it to catch up with the CPU before a register access.
func (c *CPU) CurrentCycle() int64 {
	return c.Cycles
}

// AddLogContext tags log entries with the program counter.
func (c *CPU) AddLogContext(e *log.EntryZ) {
	e.Hex16("pc", c.R[7])
}

func (c *CPU) read(addr uint16) uint16 {
	return c.Bus.Read16(addr, false)
}

func (c *CPU) write(addr, val uint16) {
	c.Bus.Write16(addr, val)
}

func (c *CPU) fetch() uint16 {
	val := c.read(c.R[7])
	c.R[7]++
	return val
}

func (c *CPU) push(val uint16) {
	c.write(c.R[6], val)
	c.R[6]++
}

func (c *CPU) pop() uint16 {
	c.R[6]--
	return c.read(c.R[6])
}

// Step executes one instruction and returns its cost in cycles. The cost of
// entering the interrupt routine, if the instruction let it happen, is
// included. A halted CPU doesn't execute anything and returns 0.
func (c *CPU) Step() int {
	if c.halted {
		return 0
	}

	start := c.Cycles
	c.opPC = c.R[7]
	if c.tracer != nil {
		c.tracer.write(c)
	}

	opcode := c.fetch()
	if opcode > 0x3FF {
		c.halt(InvalidOpcode, opcode)
		return int(c.Cycles - start)
	}

	dbl := c.sdbd
	c.sdbd = false
	c.interruptible = true
	ops[opcode](c, opcode, dbl)

	if c.interruptible && c.intrq && c.intrEnabled && !c.halted {
		c.interrupt()
	}
	return int(c.Cycles - start)
}

// RunUntil executes instructions until the cycle counter reaches until or the
// CPU halts. The last instruction may overshoot.
func (c *CPU) RunUntil(until int64) {
	for c.Cycles < until && !c.halted {
		c.Step()
	}
}

func (c *CPU) interrupt() {
	log.ModCPU.DebugZ("interrupt").Hex16("ret", c.R[7]).End()

	c.intrq = false
	c.push(c.R[7])
	c.R[7] = hwdefs.InterruptVector
	c.Cycles += cyclesInterrupt
}

func (c *CPU) halt(reason HaltReason, opcode uint16) {
	c.halted = true
	c.haltErr = HaltError{Reason: reason, PC: c.opPC, Opcode: opcode}

	log.ModCPU.WarnZ("CPU halted").
		Stringer("reason", reason).
		Hex16("PC", c.opPC).
		Hex16("opcode", opcode).
		Words("regs", c.R[:]).
		End()
}

func (c *CPU) State() *snapshot.CPU {
	return &snapshot.CPU{
		R:             c.R,
		PSW:           uint8(c.PSW),
		Cycles:        c.Cycles,
		IntrEnabled:   c.intrEnabled,
		SDBD:          c.sdbd,
		IntrReq:       c.intrq,
		Interruptible: c.interruptible,
		Halted:        c.halted,
		HaltReason:    uint8(c.haltErr.Reason),
		HaltPC:        c.haltErr.PC,
		HaltOpcode:    c.haltErr.Opcode,
	}
}

func (c *CPU) SetState(state *snapshot.CPU) {
	c.R = state.R
	c.PSW = PSW(state.PSW)
	c.Cycles = state.Cycles
	c.intrEnabled = state.IntrEnabled
	c.sdbd = state.SDBD
	c.intrq = state.IntrReq
	c.interruptible = state.Interruptible
	c.halted = state.Halted
	c.haltErr = HaltError{
		Reason: HaltReason(state.HaltReason),
		PC:     state.HaltPC,
		Opcode: state.HaltOpcode,
	}
}
