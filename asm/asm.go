// Package asm provides an assembler for Y86-64 assembly language.
//
// The full instruction set is supported: halt, nop, rrmovq and the
// cmovXX family, irmovq, rmmovq, mrmovq, the OPq group (addq, subq,
// andq, xorq), jmp and the jXX family, call, ret, pushq and popq.
// Labels may be referenced before they are defined. Three directives
// are recognised: .pos (set the current address), .align (pad to a
// boundary) and .quad (emit an 8-byte value or label address).
// Comments start with "#" or "//".
package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sarchlab/y86sim/insts"
)

// AssemblyError describes a failure to assemble a line of source.
type AssemblyError struct {
	Message string
	LineNum int
	Line    string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("line %d: %s\n  %s", e.LineNum, e.Message, e.Line)
}

// encoding pairs an instruction code with the fixed low nibble of its
// first byte (the ALU function or condition code).
type encoding struct {
	icode insts.ICode
	fn    uint8
}

// mnemonics maps every assembly mnemonic to its encoding.
var mnemonics = map[string]encoding{
	"halt":   {insts.OpHALT, 0},
	"nop":    {insts.OpNOP, 0},
	"ret":    {insts.OpRET, 0},
	"rrmovq": {insts.OpRRMOVQ, uint8(insts.CondAlways)},
	"cmovle": {insts.OpRRMOVQ, uint8(insts.CondLE)},
	"cmovl":  {insts.OpRRMOVQ, uint8(insts.CondL)},
	"cmove":  {insts.OpRRMOVQ, uint8(insts.CondE)},
	"cmovne": {insts.OpRRMOVQ, uint8(insts.CondNE)},
	"cmovge": {insts.OpRRMOVQ, uint8(insts.CondGE)},
	"cmovg":  {insts.OpRRMOVQ, uint8(insts.CondG)},
	"irmovq": {insts.OpIRMOVQ, 0},
	"rmmovq": {insts.OpRMMOVQ, 0},
	"mrmovq": {insts.OpMRMOVQ, 0},
	"addq":   {insts.OpOPQ, uint8(insts.FnADD)},
	"subq":   {insts.OpOPQ, uint8(insts.FnSUB)},
	"andq":   {insts.OpOPQ, uint8(insts.FnAND)},
	"xorq":   {insts.OpOPQ, uint8(insts.FnXOR)},
	"jmp":    {insts.OpJXX, uint8(insts.CondAlways)},
	"jle":    {insts.OpJXX, uint8(insts.CondLE)},
	"jl":     {insts.OpJXX, uint8(insts.CondL)},
	"je":     {insts.OpJXX, uint8(insts.CondE)},
	"jne":    {insts.OpJXX, uint8(insts.CondNE)},
	"jge":    {insts.OpJXX, uint8(insts.CondGE)},
	"jg":     {insts.OpJXX, uint8(insts.CondG)},
	"call":   {insts.OpCALL, 0},
	"pushq":  {insts.OpPUSHQ, 0},
	"popq":   {insts.OpPOPQ, 0},
}

// registers maps register operand syntax to register IDs.
var registers = map[string]insts.RegID{
	"%rax": insts.RegRAX, "%rcx": insts.RegRCX, "%rdx": insts.RegRDX,
	"%rbx": insts.RegRBX, "%rsp": insts.RegRSP, "%rbp": insts.RegRBP,
	"%rsi": insts.RegRSI, "%rdi": insts.RegRDI,
	"%r8": insts.RegR8, "%r9": insts.RegR9, "%r10": insts.RegR10,
	"%r11": insts.RegR11, "%r12": insts.RegR12, "%r13": insts.RegR13,
	"%r14": insts.RegR14,
}

var memOperandRe = regexp.MustCompile(`^(-?\d+|-?0[xX][0-9a-fA-F]+)?\((%r\w+)\)$`)

// pendingRef records a forward label reference to be resolved after the
// whole source has been scanned.
type pendingRef struct {
	pos     int64
	label   string
	lineNum int
}

// Assembler translates Y86-64 assembly source into machine code.
type Assembler struct {
	labels  map[string]int64
	output  []byte
	address int64
	pending []pendingRef
}

// NewAssembler creates an assembler.
func NewAssembler() *Assembler {
	a := &Assembler{}
	a.reset()
	return a
}

func (a *Assembler) reset() {
	a.labels = map[string]int64{}
	a.output = nil
	a.address = 0
	a.pending = nil
}

// Labels returns the symbol table of the last Assemble call.
func (a *Assembler) Labels() map[string]int64 {
	labels := make(map[string]int64, len(a.labels))
	for k, v := range a.labels {
		labels[k] = v
	}
	return labels
}

// Assemble translates source into machine code. The returned bytes
// start at address 0; .pos gaps are zero-filled.
func (a *Assembler) Assemble(source string) ([]byte, error) {
	a.reset()

	for lineNum, line := range strings.Split(source, "\n") {
		if err := a.assembleLine(line, lineNum+1); err != nil {
			return nil, err
		}
	}

	if err := a.resolveLabels(); err != nil {
		return nil, err
	}

	return a.output, nil
}

func (a *Assembler) assembleLine(line string, lineNum int) error {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if i := strings.Index(line, ":"); i >= 0 {
		label := strings.TrimSpace(line[:i])
		a.labels[label] = a.address
		line = strings.TrimSpace(line[i+1:])
		if line == "" {
			return nil
		}
	}

	mnemonic, operands := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		mnemonic, operands = line[:i], strings.TrimSpace(line[i+1:])
	}
	mnemonic = strings.ToLower(mnemonic)

	switch mnemonic {
	case ".pos":
		addr, err := parseImmediate(operands)
		if err != nil {
			return &AssemblyError{err.Error(), lineNum, line}
		}
		a.address = addr
		return nil
	case ".align":
		alignment, err := parseImmediate(operands)
		if err != nil || alignment <= 0 {
			return &AssemblyError{fmt.Sprintf("invalid alignment: %s", operands), lineNum, line}
		}
		for a.address%alignment != 0 {
			a.emitByte(0)
		}
		return nil
	case ".quad":
		return a.emitValue(operands, lineNum, line)
	}

	enc, ok := mnemonics[mnemonic]
	if !ok {
		return &AssemblyError{fmt.Sprintf("unknown instruction: %s", mnemonic), lineNum, line}
	}

	a.emitByte(byte(enc.icode)<<4 | enc.fn)

	switch enc.icode {
	case insts.OpHALT, insts.OpNOP, insts.OpRET:
		return nil

	case insts.OpRRMOVQ, insts.OpOPQ:
		rA, rB, err := parseRegPair(operands)
		if err != nil {
			return &AssemblyError{err.Error(), lineNum, line}
		}
		a.emitByte(byte(rA)<<4 | byte(rB))
		return nil

	case insts.OpIRMOVQ:
		ops := splitOperands(operands)
		if len(ops) != 2 {
			return &AssemblyError{fmt.Sprintf("expected 2 operands for %s", mnemonic), lineNum, line}
		}
		rB, err := parseRegister(ops[1])
		if err != nil {
			return &AssemblyError{err.Error(), lineNum, line}
		}
		a.emitByte(byte(insts.RegNone)<<4 | byte(rB))
		return a.emitValue(strings.TrimPrefix(ops[0], "$"), lineNum, line)

	case insts.OpRMMOVQ:
		ops := splitOperands(operands)
		if len(ops) != 2 {
			return &AssemblyError{fmt.Sprintf("expected 2 operands for %s", mnemonic), lineNum, line}
		}
		rA, err := parseRegister(ops[0])
		if err != nil {
			return &AssemblyError{err.Error(), lineNum, line}
		}
		disp, rB, err := parseMemOperand(ops[1])
		if err != nil {
			return &AssemblyError{err.Error(), lineNum, line}
		}
		a.emitByte(byte(rA)<<4 | byte(rB))
		a.emitQuad(disp)
		return nil

	case insts.OpMRMOVQ:
		ops := splitOperands(operands)
		if len(ops) != 2 {
			return &AssemblyError{fmt.Sprintf("expected 2 operands for %s", mnemonic), lineNum, line}
		}
		disp, rB, err := parseMemOperand(ops[0])
		if err != nil {
			return &AssemblyError{err.Error(), lineNum, line}
		}
		rA, err := parseRegister(ops[1])
		if err != nil {
			return &AssemblyError{err.Error(), lineNum, line}
		}
		a.emitByte(byte(rA)<<4 | byte(rB))
		a.emitQuad(disp)
		return nil

	case insts.OpJXX, insts.OpCALL:
		return a.emitValue(operands, lineNum, line)

	case insts.OpPUSHQ, insts.OpPOPQ:
		rA, err := parseRegister(operands)
		if err != nil {
			return &AssemblyError{err.Error(), lineNum, line}
		}
		a.emitByte(byte(rA)<<4 | byte(insts.RegNone))
		return nil
	}

	return nil
}

// emitValue emits an 8-byte value that may be a numeric immediate, an
// already-defined label, or a forward label reference.
func (a *Assembler) emitValue(operand string, lineNum int, line string) error {
	operand = strings.TrimSpace(operand)
	if operand == "" {
		return &AssemblyError{"missing operand", lineNum, line}
	}

	if addr, ok := a.labels[operand]; ok {
		a.emitQuad(addr)
		return nil
	}
	if isLabelName(operand) {
		a.pending = append(a.pending, pendingRef{a.address, operand, lineNum})
		a.emitQuad(0)
		return nil
	}

	v, err := parseImmediate(operand)
	if err != nil {
		return &AssemblyError{err.Error(), lineNum, line}
	}
	a.emitQuad(v)
	return nil
}

func (a *Assembler) emitByte(b byte) {
	for int64(len(a.output)) < a.address {
		a.output = append(a.output, 0)
	}
	if int64(len(a.output)) == a.address {
		a.output = append(a.output, b)
	} else {
		a.output[a.address] = b
	}
	a.address++
}

func (a *Assembler) emitQuad(v int64) {
	for i := 0; i < 8; i++ {
		a.emitByte(byte(uint64(v) >> (8 * i)))
	}
}

func (a *Assembler) resolveLabels() error {
	for _, ref := range a.pending {
		addr, ok := a.labels[ref.label]
		if !ok {
			return &AssemblyError{fmt.Sprintf("undefined label: %s", ref.label), ref.lineNum, ""}
		}
		for i := int64(0); i < 8; i++ {
			a.output[ref.pos+i] = byte(uint64(addr) >> (8 * i))
		}
	}
	return nil
}

func splitOperands(operands string) []string {
	parts := strings.Split(operands, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseRegister(s string) (insts.RegID, error) {
	id, ok := registers[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return insts.RegNone, fmt.Errorf("invalid register: %s", strings.TrimSpace(s))
	}
	return id, nil
}

func parseRegPair(operands string) (insts.RegID, insts.RegID, error) {
	ops := splitOperands(operands)
	if len(ops) != 2 {
		return insts.RegNone, insts.RegNone, fmt.Errorf("expected 2 register operands")
	}
	rA, err := parseRegister(ops[0])
	if err != nil {
		return insts.RegNone, insts.RegNone, err
	}
	rB, err := parseRegister(ops[1])
	if err != nil {
		return insts.RegNone, insts.RegNone, err
	}
	return rA, rB, nil
}

// parseMemOperand parses "D(%rB)" or "(%rB)" into a displacement and a
// base register.
func parseMemOperand(s string) (int64, insts.RegID, error) {
	m := memOperandRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, insts.RegNone, fmt.Errorf("invalid memory operand: %s", strings.TrimSpace(s))
	}
	var disp int64
	if m[1] != "" {
		var err error
		disp, err = parseImmediate(m[1])
		if err != nil {
			return 0, insts.RegNone, err
		}
	}
	reg, err := parseRegister(m[2])
	if err != nil {
		return 0, insts.RegNone, err
	}
	return disp, reg, nil
}

// parseImmediate parses a decimal or 0x-prefixed hexadecimal value with
// an optional leading "$" or "-". Values are interpreted mod 2^64.
func parseImmediate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var v uint64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid value: %s", s)
	}

	if neg {
		return -int64(v), nil
	}
	return int64(v), nil
}

// isLabelName reports whether s looks like a label reference rather
// than a numeric value.
func isLabelName(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
