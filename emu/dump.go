package emu

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"

	"github.com/go-faster/jx"

	"intv/hw"
	"intv/hw/snapshot"
)

// DumpState encodes a human readable summary of state as indented JSON. The
// memory image is summarized by its SHA-1.
func DumpState(state *snapshot.Console) []byte {
	var e jx.Encoder
	e.SetIdent(2)

	e.Obj(func(e *jx.Encoder) {
		e.Field("version", func(e *jx.Encoder) { e.UInt32(state.Version) })
		e.Field("cpu", func(e *jx.Encoder) { dumpCPU(e, &state.CPU) })
		e.Field("stic", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("regs", func(e *jx.Encoder) { words(e, state.STIC.Regs[:]) })
				e.Field("color_stack_mode", func(e *jx.Encoder) { e.Bool(state.STIC.ColorStackMode) })
				e.Field("display_enable", func(e *jx.Encoder) { e.Bool(state.STIC.DisplayEnable) })
			})
		})
		e.Field("psg", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("regs", func(e *jx.Encoder) { words(e, state.PSG.Regs[:]) })
				e.Field("cycle", func(e *jx.Encoder) { e.Int64(state.PSG.Cycle) })
				e.Field("envelope_step", func(e *jx.Encoder) { e.Int8(state.PSG.EnvStep) })
			})
		})
		e.Field("voice", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("playing", func(e *jx.Encoder) { e.Bool(state.Voice.Playing) })
				e.Field("fifo_len", func(e *jx.Encoder) { e.UInt8(state.Voice.FIFOLen) })
				e.Field("queue_len", func(e *jx.Encoder) { e.UInt8(state.Voice.QueueLen) })
				e.Field("ald", func(e *jx.Encoder) { e.UInt16(state.Voice.ALD) })
			})
		})
		e.Field("memory_sha1", func(e *jx.Encoder) {
			var buf [2 * len(state.Memory)]byte
			for i, w := range state.Memory {
				binary.LittleEndian.PutUint16(buf[2*i:], w)
			}
			sum := sha1.Sum(buf[:])
			e.Str(hex.EncodeToString(sum[:]))
		})
		e.Field("flags", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("halted", func(e *jx.Encoder) { e.Bool(state.Flags.Halted) })
				e.Field("controller_swap", func(e *jx.Encoder) { e.Bool(state.Flags.ControllerSwap) })
				e.Field("frame_count", func(e *jx.Encoder) { e.UInt64(state.Flags.FrameCount) })
				e.Field("collisions", func(e *jx.Encoder) { words(e, state.Flags.Collisions[:]) })
			})
		})
	})
	return e.Bytes()
}

func dumpCPU(e *jx.Encoder, cpu *snapshot.CPU) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("regs", func(e *jx.Encoder) { words(e, cpu.R[:]) })
		e.Field("psw", func(e *jx.Encoder) { e.Str(hw.PSW(cpu.PSW).String()) })
		e.Field("cycles", func(e *jx.Encoder) { e.Int64(cpu.Cycles) })
		e.Field("intr_enabled", func(e *jx.Encoder) { e.Bool(cpu.IntrEnabled) })
		if cpu.Halted {
			e.Field("halt", func(e *jx.Encoder) {
				herr := hw.HaltError{Reason: hw.HaltReason(cpu.HaltReason), PC: cpu.HaltPC, Opcode: cpu.HaltOpcode}
				e.Str(herr.Error())
			})
		}
	})
}

func words(e *jx.Encoder, ws []uint16) {
	e.Arr(func(e *jx.Encoder) {
		for _, w := range ws {
			e.UInt16(w)
		}
	})
}
