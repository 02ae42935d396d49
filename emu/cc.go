// Package emu provides functional Y86-64 emulation.
package emu

import "github.com/sarchlab/y86sim/insts"

// CondCodes holds the three Y86-64 condition flags. ZF starts true:
// the machine powers up as if the last ALU result had been zero.
type CondCodes struct {
	ZF bool
	SF bool
	OF bool
}

// NewCondCodes returns the reset flag state.
func NewCondCodes() CondCodes {
	return CondCodes{ZF: true}
}

// Eval evaluates a branch or conditional-move condition against the
// current flags. Condition codes above CondG evaluate to false.
func (c *CondCodes) Eval(cond insts.Cond) bool {
	switch cond {
	case insts.CondAlways:
		return true
	case insts.CondLE:
		return (c.SF != c.OF) || c.ZF
	case insts.CondL:
		return c.SF != c.OF
	case insts.CondE:
		return c.ZF
	case insts.CondNE:
		return !c.ZF
	case insts.CondGE:
		return c.SF == c.OF
	case insts.CondG:
		return (c.SF == c.OF) && !c.ZF
	default:
		return false
	}
}
