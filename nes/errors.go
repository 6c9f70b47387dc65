package nes

import (
	"encoding/json"
	"fmt"
)

// ErrInvalidCartridge is returned by LoadCartridge when the iNES header fails
// to parse (bad magic, truncated image, unsupported NES 2.0 flags).
type ErrInvalidCartridge struct {
	Reason string
}

func (e *ErrInvalidCartridge) Error() string {
	return fmt.Sprintf("invalid cartridge: %s", e.Reason)
}

// ErrUnsupportedMapper is returned by LoadCartridge when the header names a
// mapper ID this core has no implementation for.
type ErrUnsupportedMapper struct {
	ID byte
}

func (e *ErrUnsupportedMapper) Error() string {
	return fmt.Sprintf("unsupported mapper: %d", e.ID)
}

// InvariantError marks a programming bug rather than a runtime
// condition: an always-set status bit observed cleared, or an opcode
// with no table entry dispatched. Continuing execution after either
// would silently desynchronize from real hardware, so the bus surfaces
// this upward instead of limping on.
type InvariantError struct {
	Message string
	Dump    CPUStateDump
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated: %s", e.Message)
}

// DumpJSON renders the CPU state attached to this error as JSON, for a
// driver to log or write to a crash report without reaching into
// package-private fields.
func (e *InvariantError) DumpJSON() []byte {
	out, err := json.Marshal(struct {
		Message string `json:"message"`
		A       byte   `json:"a"`
		X       byte   `json:"x"`
		Y       byte   `json:"y"`
		SP      byte   `json:"sp"`
		PC      uint16 `json:"pc"`
		P       byte   `json:"p"`
		Opcode  byte   `json:"opcode"`
		Cycles  int    `json:"pending_cycles"`
	}{e.Message, e.Dump.A, e.Dump.X, e.Dump.Y, e.Dump.SP, e.Dump.PC, e.Dump.P, e.Dump.Opcode, e.Dump.Cycles})
	if err != nil {
		return []byte(`{}`)
	}
	return out
}
