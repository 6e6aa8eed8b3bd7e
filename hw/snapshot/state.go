// Package snapshot defines the serialized state of every console component.
//
// All structures have a fixed size so that a whole Console can be encoded
// with encoding/binary. Any change to a structure layout must come with a
// new Version.
package snapshot

// Version tags the layout of Console.
const Version uint32 = 0x494E5604

type Console struct {
	Version uint32
	CPU     CPU
	STIC    STIC
	PSG     PSG
	Voice   Voice
	Memory  [0x10000]uint16
	Flags   Flags
}

type CPU struct {
	R      [8]uint16
	PSW    uint8
	Cycles int64

	IntrEnabled   bool
	SDBD          bool
	IntrReq       bool
	Interruptible bool

	Halted     bool
	HaltReason uint8
	HaltPC     uint16
	HaltOpcode uint16
}

type STIC struct {
	Regs           [0x40]uint16
	ColorStackMode bool
	DisplayEnable  bool
}

type PSG struct {
	Regs  [16]uint16
	Input [2]uint8
	Cycle int64

	ToneCount [3]uint16
	ToneOut   [3]bool

	NoiseCount uint8
	LFSR       uint32

	EnvCount   uint32
	EnvStep    int8
	EnvAttack  uint8
	EnvHolding bool
}

type VoiceFrame struct {
	Pitch     uint16
	Amplitude uint16
	Duration  uint16
	Filter    [6][2]uint8
}

type Voice struct {
	Cycle int64
	Acc   int64

	FIFO     [64]uint16
	FIFOHead uint8
	FIFOLen  uint8

	ALD        uint16
	ALDPending bool
	ROMPtr     uint16
	ROMLeft    uint16

	Queue     [8]VoiceFrame
	QueueHead uint8
	QueueLen  uint8

	Cur        VoiceFrame
	Playing    bool
	Pos        uint16
	PitchCount uint16
	LFSR       uint16
	Z          [6][2]int32
}

// Flags holds orchestrator level state.
type Flags struct {
	Halted         bool
	ControllerSwap bool
	FrameCount     uint64
	FrameEnd       int64
	Collisions     [8]uint16 // as latched by the last rendered frame
}
