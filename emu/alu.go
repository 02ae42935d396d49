// Package emu provides functional Y86-64 emulation.
package emu

import "github.com/sarchlab/y86sim/insts"

// ALU implements the Y86-64 OPq operations and condition-flag updates.
type ALU struct {
	cc *CondCodes
}

// NewALU creates an ALU connected to the given condition codes.
func NewALU(cc *CondCodes) *ALU {
	return &ALU{cc: cc}
}

// Op computes valB <fn> valA, sets ZF/SF/OF from the signed result, and
// returns the result. All arithmetic wraps mod 2^64. Function codes
// above FnXOR produce 0 (they are not classified as faults).
func (a *ALU) Op(fn insts.Fn, valA, valB int64) int64 {
	var valE int64
	switch fn {
	case insts.FnADD:
		valE = valB + valA
	case insts.FnSUB:
		valE = valB - valA
	case insts.FnAND:
		valE = valB & valA
	case insts.FnXOR:
		valE = valB ^ valA
	}

	a.cc.ZF = valE == 0
	a.cc.SF = valE < 0

	// Signed overflow is defined by the sign pattern of the operands
	// and the result, not by a hardware carry chain.
	switch fn {
	case insts.FnADD:
		a.cc.OF = (valA > 0 && valB > 0 && valE < 0) ||
			(valA < 0 && valB < 0 && valE >= 0)
	case insts.FnSUB:
		a.cc.OF = (valB > 0 && valA < 0 && valE < 0) ||
			(valB < 0 && valA > 0 && valE >= 0)
	default:
		a.cc.OF = false
	}

	return valE
}
