package emu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"intv/emu/log"
	"intv/hw"
	"intv/hw/snapshot"
)

var (
	ErrVersionMismatch = errors.New("snapshot version mismatch")
	ErrBadSnapshot     = errors.New("malformed snapshot")
)

// VersionMismatchError is returned when loading a snapshot produced by an
// incompatible version of the emulator.
type VersionMismatchError struct {
	Got, Want uint32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("%s: got %08x, want %08x", ErrVersionMismatch, e.Got, e.Want)
}

func (e *VersionMismatchError) Is(target error) bool {
	return target == ErrVersionMismatch
}

// SnapshotSize is the size in bytes of every snapshot.
var SnapshotSize = binary.Size(snapshot.Console{})

// State returns the full console state. The memory image is read through the
// bus without side effects.
func (c *Console) State() *snapshot.Console {
	state := &snapshot.Console{
		Version: snapshot.Version,
		CPU:     *c.CPU.State(),
		STIC:    *c.STIC.State(),
		PSG:     *c.PSG.State(),
		Voice:   *c.Voice.State(),
	}
	for addr := range state.Memory {
		state.Memory[addr] = c.Bus.Peek16(uint16(addr))
	}

	_, halted := c.CPU.IsHalted()
	state.Flags = snapshot.Flags{
		Halted:         halted,
		ControllerSwap: c.controllerSwap,
		FrameCount:     c.frameCount,
		FrameEnd:       c.frameEnd,
		Collisions:     c.collisions,
	}
	return state
}

// SetState restores the console state. Only the writable areas of the memory
// image are restored, ROMs stay as loaded.
func (c *Console) SetState(state *snapshot.Console) {
	c.CPU.SetState(&state.CPU)
	c.STIC.SetState(&state.STIC)
	c.PSG.SetState(&state.PSG)
	c.Voice.SetState(&state.Voice)

	c.Mem.RAM(func(base uint16, data []uint16, mask uint16) {
		restore(data, state.Memory[base:], mask)
	})
	for _, r := range c.cartRAM {
		restore(r.mem.Data, state.Memory[r.addr:], r.mem.Mask)
	}

	c.controllerSwap = state.Flags.ControllerSwap
	c.frameCount = state.Flags.FrameCount
	c.frameEnd = state.Flags.FrameEnd
	c.collisions = state.Flags.Collisions
}

func restore(dst, src []uint16, mask uint16) {
	if mask == 0 {
		mask = 0xFFFF
	}
	for i := range dst {
		dst[i] = src[i] & mask
	}
}

// SaveSnapshot serializes the console state. Samples still buffered in the
// sound and speech outputs are not part of it.
func (c *Console) SaveSnapshot() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(SnapshotSize)
	if err := binary.Write(&buf, binary.LittleEndian, c.State()); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot decodes and validates a snapshot without applying it.
func DecodeSnapshot(buf []byte) (*snapshot.Console, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadSnapshot, len(buf))
	}
	if v := binary.LittleEndian.Uint32(buf); v != snapshot.Version {
		return nil, &VersionMismatchError{Got: v, Want: snapshot.Version}
	}
	if len(buf) != SnapshotSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBadSnapshot, len(buf), SnapshotSize)
	}

	state := new(snapshot.Console)
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, state); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	if hw.HaltReason(state.CPU.HaltReason) > hw.InvalidOpcode {
		return nil, fmt.Errorf("%w: invalid halt reason %d", ErrBadSnapshot, state.CPU.HaltReason)
	}
	return state, nil
}

// LoadSnapshot restores a state produced by SaveSnapshot. The console is left
// untouched if buf can't be decoded.
func (c *Console) LoadSnapshot(buf []byte) error {
	state, err := DecodeSnapshot(buf)
	if err != nil {
		log.ModEmu.WarnZ("failed to load snapshot").Error("err", err).End()
		return err
	}
	c.SetState(state)
	return nil
}
