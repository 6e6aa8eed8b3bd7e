package hw

// Instruction costs, in CPU cycles.
const (
	cyclesImplied   = 4
	cyclesJump      = 12
	cyclesRegister  = 6
	cyclesRegToPC   = 7 // register ops writing R6 or R7
	cyclesShift1    = 6
	cyclesShift2    = 8
	cyclesBranch    = 7
	cyclesTaken     = 9
	cyclesMVODirect = 11
	cyclesMVO       = 9
	cyclesDirect    = 10
	cyclesIndirect  = 8
	cyclesStack     = 11
	cyclesImmediate = 8
	cyclesSDBD      = 3 // extra cost of double byte indirect reads
	cyclesSDBDImm   = 2 // extra cost of double byte immediate reads
	cyclesInterrupt = 12
)

// An opFunc executes the instruction whose first word is op. dbl is true
// when the previous instruction was SDBD.
type opFunc func(c *CPU, op uint16, dbl bool)

var ops [0x400]opFunc

func init() {
	ops[0x000] = opHLT
	ops[0x001] = opSDBD
	ops[0x002] = opEIS
	ops[0x003] = opDIS
	ops[0x004] = opJ
	ops[0x005] = opTCI
	ops[0x006] = opCLRC
	ops[0x007] = opSETC

	for op := 0x008; op < 0x030; op++ {
		ops[op] = opSingle
	}
	for op := 0x030; op < 0x034; op++ {
		ops[op] = opGSWD
	}
	for op := 0x034; op < 0x038; op++ {
		ops[op] = opNOP // NOP and SIN
	}
	for op := 0x038; op < 0x040; op++ {
		ops[op] = opRSWD
	}
	for op := 0x040; op < 0x080; op++ {
		ops[op] = opShift
	}
	for op := 0x080; op < 0x200; op++ {
		ops[op] = opRegReg
	}
	for op := 0x200; op < 0x240; op++ {
		ops[op] = opBranch
	}
	for op := 0x240; op < 0x280; op++ {
		ops[op] = opMVO
	}
	for op := 0x280; op < 0x400; op++ {
		ops[op] = opMemory
	}
}

// add computes a+b+cin and sets all four flags.
func (c *CPU) add(a, b, cin uint16) uint16 {
	sum := uint32(a) + uint32(b) + uint32(cin)
	res := uint16(sum)
	c.PSW.set(Carry, sum > 0xFFFF)
	c.PSW.set(Overflow, ^(a^b)&(a^res)&0x8000 != 0)
	c.PSW.setSZ(res)
	return res
}

// sub computes a-b. Carry is set when there is no borrow.
func (c *CPU) sub(a, b uint16) uint16 {
	return c.add(a, ^b, 1)
}

func opHLT(c *CPU, op uint16, _ bool) {
	c.Cycles += cyclesImplied
	c.halt(HaltInstruction, op)
}

func opSDBD(c *CPU, _ uint16, _ bool) {
	c.sdbd = true
	c.interruptible = false
	c.Cycles += cyclesImplied
}

func opEIS(c *CPU, _ uint16, _ bool) {
	c.intrEnabled = true
	c.interruptible = false
	c.Cycles += cyclesImplied
}

func opDIS(c *CPU, _ uint16, _ bool) {
	c.intrEnabled = false
	c.interruptible = false
	c.Cycles += cyclesImplied
}

// J/JSR: the two following words hold the return register (bits 9-8, 3 means
// no return address is saved), the interrupt flag action (bits 1-0) and the
// 16-bit target.
func opJ(c *CPU, op uint16, _ bool) {
	w1 := c.fetch()
	w2 := c.fetch()
	c.Cycles += cyclesJump

	rr := (w1 >> 8) & 3
	ff := w1 & 3
	if ff == 3 {
		c.halt(InvalidOpcode, op)
		return
	}
	if rr != 3 {
		c.R[4+rr] = c.R[7]
	}
	switch ff {
	case 1:
		c.intrEnabled = true
	case 2:
		c.intrEnabled = false
	}
	c.R[7] = (w1&0xFC)<<8 | w2&0x3FF
}

func opTCI(c *CPU, _ uint16, _ bool) {
	c.Cycles += cyclesImplied
}

func opCLRC(c *CPU, _ uint16, _ bool) {
	c.PSW.set(Carry, false)
	c.Cycles += cyclesImplied
}

func opSETC(c *CPU, _ uint16, _ bool) {
	c.PSW.set(Carry, true)
	c.Cycles += cyclesImplied
}

// INCR, DECR, COMR, NEGR, ADCR.
func opSingle(c *CPU, op uint16, _ bool) {
	r := op & 7
	switch op >> 3 {
	case 1:
		c.R[r]++
		c.PSW.setSZ(c.R[r])
	case 2:
		c.R[r]--
		c.PSW.setSZ(c.R[r])
	case 3:
		c.R[r] = ^c.R[r]
		c.PSW.setSZ(c.R[r])
	case 4:
		c.R[r] = c.sub(0, c.R[r])
	case 5:
		var cin uint16
		if c.PSW.has(Carry) {
			cin = 1
		}
		c.R[r] = c.add(c.R[r], 0, cin)
	}
	c.Cycles += cyclesRegister
}

func opGSWD(c *CPU, op uint16, _ bool) {
	c.R[op&3] = c.PSW.word()
	c.Cycles += cyclesRegister
}

func opNOP(c *CPU, _ uint16, _ bool) {
	c.Cycles += cyclesRegister
}

func opRSWD(c *CPU, op uint16, _ bool) {
	c.PSW = PSW(c.R[op&7]>>4) & 0xF
	c.Cycles += cyclesRegister
}

// Shifts and rotates only address R0-R3. Bit 2 selects a shift by 2. Right
// shifts and SWAP take the sign flag from bit 7.
func opShift(c *CPU, op uint16, _ bool) {
	r := op & 3
	two := op&4 != 0
	v := c.R[r]
	carry := uint16(0)
	if c.PSW.has(Carry) {
		carry = 1
	}
	over := uint16(0)
	if c.PSW.has(Overflow) {
		over = 1
	}

	var res uint16
	switch (op >> 3) & 7 {
	case 0: // SWAP
		if two {
			res = v&0xFF | v<<8
		} else {
			res = v<<8 | v>>8
		}
		c.PSW.setSZ8(res)
	case 1: // SLL
		if two {
			res = v << 2
		} else {
			res = v << 1
		}
		c.PSW.setSZ(res)
	case 2: // RLC
		if two {
			res = v<<2 | carry<<1 | over
			c.PSW.set(Overflow, v&0x4000 != 0)
		} else {
			res = v<<1 | carry
		}
		c.PSW.set(Carry, v&0x8000 != 0)
		c.PSW.setSZ(res)
	case 3: // SLLC
		if two {
			res = v << 2
			c.PSW.set(Overflow, v&0x4000 != 0)
		} else {
			res = v << 1
		}
		c.PSW.set(Carry, v&0x8000 != 0)
		c.PSW.setSZ(res)
	case 4: // SLR
		if two {
			res = v >> 2
		} else {
			res = v >> 1
		}
		c.PSW.setSZ8(res)
	case 5: // SAR
		if two {
			res = uint16(int16(v) >> 2)
		} else {
			res = uint16(int16(v) >> 1)
		}
		c.PSW.setSZ8(res)
	case 6: // RRC
		if two {
			res = v>>2 | carry<<14 | over<<15
			c.PSW.set(Overflow, v&2 != 0)
		} else {
			res = v>>1 | carry<<15
		}
		c.PSW.set(Carry, v&1 != 0)
		c.PSW.setSZ8(res)
	case 7: // SARC
		if two {
			res = uint16(int16(v) >> 2)
			c.PSW.set(Overflow, v&2 != 0)
		} else {
			res = uint16(int16(v) >> 1)
		}
		c.PSW.set(Carry, v&1 != 0)
		c.PSW.setSZ8(res)
	}

	c.R[r] = res
	c.interruptible = false
	if two {
		c.Cycles += cyclesShift2
	} else {
		c.Cycles += cyclesShift1
	}
}

// MOVR, ADDR, SUBR, CMPR, ANDR, XORR: bits 5-3 source, bits 2-0 destination.
func opRegReg(c *CPU, op uint16, _ bool) {
	src := c.R[(op>>3)&7]
	d := op & 7
	class := op >> 6

	switch class {
	case 2:
		c.R[d] = src
		c.PSW.setSZ(src)
	case 3:
		c.R[d] = c.add(c.R[d], src, 0)
	case 4:
		c.R[d] = c.sub(c.R[d], src)
	case 5:
		c.sub(c.R[d], src)
	case 6:
		c.R[d] &= src
		c.PSW.setSZ(c.R[d])
	case 7:
		c.R[d] ^= src
		c.PSW.setSZ(c.R[d])
	}

	if d >= 6 && class != 5 {
		c.Cycles += cyclesRegToPC
	} else {
		c.Cycles += cyclesRegister
	}
}

// branchCond evaluates condition n (0-15). Conditions 8-15 are the negation
// of 0-7.
func (c *CPU) branchCond(n uint16) bool {
	s := c.PSW.has(Sign)
	z := c.PSW.has(Zero)
	o := c.PSW.has(Overflow)
	cy := c.PSW.has(Carry)

	var ok bool
	switch n & 7 {
	case 0: // B
		ok = true
	case 1: // BC
		ok = cy
	case 2: // BOV
		ok = o
	case 3: // BPL
		ok = !s
	case 4: // BEQ
		ok = z
	case 5: // BLT
		ok = s != o
	case 6: // BLE
		ok = z || s != o
	case 7: // BUSC
		ok = s != cy
	}
	if n&8 != 0 {
		ok = !ok
	}
	return ok
}

// Branches: bit 5 is the direction, bit 4 selects an external condition
// (never asserted on this console), bits 3-0 the condition. The displacement
// is relative to the address following the instruction.
func opBranch(c *CPU, op uint16, _ bool) {
	disp := c.fetch()
	if op&0x10 != 0 || !c.branchCond(op&0xF) {
		c.Cycles += cyclesBranch
		return
	}
	if op&0x20 != 0 {
		c.R[7] -= disp + 1
	} else {
		c.R[7] += disp
	}
	c.Cycles += cyclesTaken
}

// MVO: bits 5-3 addressing mode, bits 2-0 source register.
func opMVO(c *CPU, op uint16, _ bool) {
	mode := (op >> 3) & 7
	val := c.R[op&7]

	switch mode {
	case 0:
		addr := c.fetch()
		c.write(addr, val)
		c.Cycles += cyclesMVODirect
	case 6:
		c.push(val)
		c.Cycles += cyclesMVO
	default:
		addr := c.R[mode]
		c.write(addr, val)
		if mode >= 4 {
			c.R[mode]++
		}
		c.Cycles += cyclesMVO
	}
	c.interruptible = false
}

// readOperand reads the source operand of MVI/ADD/SUB/CMP/AND/XOR with
// addressing mode m. With SDBD, two bytes are read, low byte first, and
// combined into a word.
func (c *CPU) readOperand(m uint16, dbl bool) uint16 {
	var next func() uint16
	switch m {
	case 0:
		addr := c.fetch()
		next = func() uint16 { return c.read(addr) }
		c.Cycles += cyclesDirect
	case 1, 2, 3:
		addr := c.R[m]
		next = func() uint16 { return c.read(addr) }
		c.Cycles += cyclesIndirect
	case 4, 5:
		next = func() uint16 {
			v := c.read(c.R[m])
			c.R[m]++
			return v
		}
		c.Cycles += cyclesIndirect
	case 6:
		next = c.pop
		c.Cycles += cyclesStack
	case 7:
		next = c.fetch
		c.Cycles += cyclesImmediate
	}

	if !dbl {
		return next()
	}
	lo := next() & 0xFF
	hi := next() & 0xFF
	if m == 7 {
		c.Cycles += cyclesSDBDImm
	} else {
		c.Cycles += cyclesSDBD
	}
	return hi<<8 | lo
}

// MVI, ADD, SUB, CMP, AND, XOR: bits 5-3 addressing mode, bits 2-0
// destination register.
func opMemory(c *CPU, op uint16, dbl bool) {
	r := op & 7
	val := c.readOperand((op>>3)&7, dbl)

	switch op >> 6 {
	case 10:
		c.R[r] = val
	case 11:
		c.R[r] = c.add(c.R[r], val, 0)
	case 12:
		c.R[r] = c.sub(c.R[r], val)
	case 13:
		c.sub(c.R[r], val)
	case 14:
		c.R[r] &= val
		c.PSW.setSZ(c.R[r])
	case 15:
		c.R[r] ^= val
		c.PSW.setSZ(c.R[r])
	}
}
