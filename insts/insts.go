// Package insts provides Y86-64 instruction-set definitions.
//
// This package defines the instruction codes, function codes, condition
// codes, register IDs and status codes of the Y86-64 ISA, together with
// the encoding shape of each instruction family: whether it carries a
// register-specifier byte, whether it carries an 8-byte constant, and its
// total length in bytes.
package insts

// ICode identifies a Y86-64 instruction family. It is the high nibble of
// the first instruction byte.
type ICode uint8

// Y86-64 instruction codes.
const (
	OpHALT   ICode = 0x0
	OpNOP    ICode = 0x1
	OpRRMOVQ ICode = 0x2 // includes cmovXX
	OpIRMOVQ ICode = 0x3
	OpRMMOVQ ICode = 0x4
	OpMRMOVQ ICode = 0x5
	OpOPQ    ICode = 0x6
	OpJXX    ICode = 0x7
	OpCALL   ICode = 0x8
	OpRET    ICode = 0x9
	OpPUSHQ  ICode = 0xA
	OpPOPQ   ICode = 0xB
)

// MaxICode is the largest valid instruction code. Fetch classifies any
// icode above it as an illegal instruction.
const MaxICode = OpPOPQ

// Fn identifies an ALU operation. It is the low nibble of the first byte
// of an OPq instruction.
type Fn uint8

// ALU function codes.
const (
	FnADD Fn = 0x0
	FnSUB Fn = 0x1
	FnAND Fn = 0x2
	FnXOR Fn = 0x3
)

// Cond identifies a branch or conditional-move condition. It is the low
// nibble of the first byte of a jXX or cmovXX instruction.
type Cond uint8

// Condition codes.
const (
	CondAlways Cond = 0x0 // jmp / rrmovq
	CondLE     Cond = 0x1 // less than or equal ((SF^OF) | ZF)
	CondL      Cond = 0x2 // less than (SF^OF)
	CondE      Cond = 0x3 // equal (ZF)
	CondNE     Cond = 0x4 // not equal (!ZF)
	CondGE     Cond = 0x5 // greater than or equal (!(SF^OF))
	CondG      Cond = 0x6 // greater than (!(SF^OF) & !ZF)
)

// Stat is the processor status code.
type Stat uint8

// Processor status codes.
const (
	StatAOK Stat = 1 // normal operation
	StatHLT Stat = 2 // halt instruction executed
	StatADR Stat = 3 // invalid memory address
	StatINS Stat = 4 // invalid instruction code
)

// String returns the conventional name of a status code.
func (s Stat) String() string {
	switch s {
	case StatAOK:
		return "AOK"
	case StatHLT:
		return "HLT"
	case StatADR:
		return "ADR"
	case StatINS:
		return "INS"
	}
	return "UNKNOWN"
}

// RegID identifies a general-purpose register, or RegNone when an
// instruction field references no register.
type RegID uint8

// Register IDs.
const (
	RegRAX RegID = 0
	RegRCX RegID = 1
	RegRDX RegID = 2
	RegRBX RegID = 3
	RegRSP RegID = 4
	RegRBP RegID = 5
	RegRSI RegID = 6
	RegRDI RegID = 7
	RegR8  RegID = 8
	RegR9  RegID = 9
	RegR10 RegID = 10
	RegR11 RegID = 11
	RegR12 RegID = 12
	RegR13 RegID = 13
	RegR14 RegID = 14

	// RegNone is the "no register" sentinel.
	RegNone RegID = 0xF
)

// NumRegs is the number of general-purpose registers.
const NumRegs = 15

// RegNames maps register IDs 0-14 to their conventional names.
var RegNames = [NumRegs]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14",
}

// RegName returns the name of a register ID, or "none" for RegNone and
// anything else outside the register file.
func (r RegID) RegName() string {
	if r < NumRegs {
		return RegNames[r]
	}
	return "none"
}

// HasRegSpec reports whether instructions of the given family carry a
// register-specifier byte after the opcode byte.
func HasRegSpec(ic ICode) bool {
	switch ic {
	case OpRRMOVQ, OpIRMOVQ, OpRMMOVQ, OpMRMOVQ, OpOPQ, OpPUSHQ, OpPOPQ:
		return true
	}
	return false
}

// HasValC reports whether instructions of the given family carry an
// 8-byte little-endian constant.
func HasValC(ic ICode) bool {
	switch ic {
	case OpIRMOVQ, OpRMMOVQ, OpMRMOVQ, OpJXX, OpCALL:
		return true
	}
	return false
}

// Length returns the encoded length in bytes of instructions of the
// given family: one opcode byte, plus an optional register-specifier
// byte, plus an optional 8-byte constant.
func Length(ic ICode) int64 {
	n := int64(1)
	if HasRegSpec(ic) {
		n++
	}
	if HasValC(ic) {
		n += 8
	}
	return n
}
