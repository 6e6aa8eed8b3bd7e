package hw

import "fmt"

//go:generate go tool stringer -type=HaltReason

type HaltReason uint8

const (
	HaltInstruction HaltReason = iota // HLT executed
	InvalidOpcode                     // undecodable instruction word
)

// HaltError describes why and where the CPU stopped. Halts are sticky: the
// CPU stays halted until reset.
type HaltError struct {
	Reason HaltReason
	PC     uint16
	Opcode uint16
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("cpu halted (%s) at $%04X, opcode $%04X", e.Reason, e.PC, e.Opcode)
}
