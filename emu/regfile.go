// Package emu provides functional Y86-64 emulation.
package emu

import "github.com/sarchlab/y86sim/insts"

// RegFile represents the Y86-64 register file: fifteen 64-bit
// general-purpose registers indexed 0-14. ID 15 (insts.RegNone) is the
// "no register" sentinel: it reads as 0 and writes to it are discarded.
type RegFile struct {
	regs [insts.NumRegs]int64
}

// Read reads a register value. RegNone and anything outside the file
// return 0.
func (r *RegFile) Read(id insts.RegID) int64 {
	if id >= insts.NumRegs {
		return 0
	}
	return r.regs[id]
}

// Write writes a value to a register. Writes to RegNone and anything
// outside the file are discarded.
func (r *RegFile) Write(id insts.RegID, value int64) {
	if id >= insts.NumRegs {
		return
	}
	r.regs[id] = value
}
