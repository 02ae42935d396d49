// Package emu provides functional Y86-64 emulation.
package emu

import (
	"github.com/sarchlab/y86sim/insts"
)

// DataAccessor is the path taken by the Memory stage's 8-byte accesses.
// The plain Memory implements it; a statistics cache can be interposed
// instead. An interposed accessor must be observationally transparent:
// architectural state after each step must be identical to the uncached
// design.
type DataAccessor interface {
	ReadQuad(addr int64) (int64, bool)
	WriteQuad(addr int64, value int64) bool
}

// AccessStats is the optional statistics surface of a DataAccessor.
// The trace emitter uses it for the verbose-mode cache sub-object.
type AccessStats interface {
	HitCount() uint64
	MissCount() uint64
}

// Emulator executes Y86-64 instructions sequentially through the
// six-phase Fetch, Decode, Execute, Memory, Write-back, PC-update
// skeleton.
type Emulator struct {
	mem  *Memory
	regs *RegFile
	cc   CondCodes
	alu  *ALU
	data DataAccessor

	pc   int64
	stat insts.Stat

	// Per-cycle temporaries. They are reset at the start of every step
	// and are not part of architectural state.
	icode      insts.ICode
	ifun       uint8
	rA, rB     insts.RegID
	valC, valP int64
	valA, valB int64
	valE, valM int64
	cnd        bool

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemory sets the memory the emulator executes from. Use this when
// the program image has already been loaded into a Memory.
func WithMemory(mem *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.mem = mem
	}
}

// WithDataAccessor interposes an accessor (e.g. a statistics cache) on
// the Memory stage's 8-byte reads and writes. Instruction fetch always
// bypasses it.
func WithDataAccessor(a DataAccessor) EmulatorOption {
	return func(e *Emulator) {
		e.data = a
	}
}

// WithMaxInstructions sets the maximum number of instructions to
// execute. A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new Y86-64 emulator in the reset state: PC 0,
// all registers 0, ZF set, status AOK.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		mem:  NewMemory(),
		regs: &RegFile{},
		cc:   NewCondCodes(),
		stat: insts.StatAOK,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU(&e.cc)
	if e.data == nil {
		e.data = e.mem
	}

	return e
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.mem
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regs
}

// CondCodes returns the current condition flags.
func (e *Emulator) CondCodes() CondCodes {
	return e.cc
}

// PC returns the current program counter.
func (e *Emulator) PC() int64 {
	return e.pc
}

// Stat returns the current status code.
func (e *Emulator) Stat() insts.Stat {
	return e.stat
}

// DataAccessor returns the Memory-stage access path.
func (e *Emulator) DataAccessor() DataAccessor {
	return e.data
}

// InstructionCount returns the number of instructions processed,
// including the one that surfaced a fault.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Step processes a single instruction through all six phases. When
// Fetch surfaces a fault the remaining phases are skipped and PC is
// left at the faulting instruction. Step is a no-op once the status has
// left AOK.
func (e *Emulator) Step() {
	if e.stat != insts.StatAOK {
		return
	}

	e.icode, e.ifun = 0, 0
	e.rA, e.rB = insts.RegNone, insts.RegNone
	e.valC, e.valP = 0, 0
	e.valA, e.valB = 0, 0
	e.valE, e.valM = 0, 0
	e.cnd = false

	e.fetch()
	if e.stat == insts.StatAOK {
		e.decode()
		e.execute()
		e.memoryAccess()
		e.writeBack()
		e.pcUpdate()
	}

	e.instructionCount++
}

// Run repeats Step until the status leaves AOK or the PC leaves memory,
// emitting one trace record per instruction. A fault produces exactly
// one final record. Returns the final status.
func (e *Emulator) Run(tw *TraceWriter) insts.Stat {
	tw.Begin()
	for e.stat == insts.StatAOK {
		if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
			break
		}
		e.Step()
		tw.WriteState(e)
		if e.stat != insts.StatAOK {
			break
		}
		if e.pc < 0 || e.pc >= MemSize {
			break
		}
	}
	tw.End()
	return e.stat
}

// fetch reads the instruction at PC and splits it into icode, ifun, the
// optional register specifiers and the optional 8-byte constant, and
// computes valP, the address of the next sequential instruction.
func (e *Emulator) fetch() {
	if e.pc < 0 || e.pc >= MemSize {
		e.stat = insts.StatADR
		return
	}

	b0, _ := e.mem.ReadByte(e.pc)
	e.icode = insts.ICode(b0 >> 4)
	e.ifun = b0 & 0xF

	if e.icode > insts.MaxICode {
		e.stat = insts.StatINS
		return
	}

	e.valP = e.pc + 1

	if insts.HasRegSpec(e.icode) {
		b1, ok := e.mem.ReadByte(e.valP)
		if !ok {
			e.stat = insts.StatADR
			return
		}
		e.rA = insts.RegID(b1 >> 4)
		e.rB = insts.RegID(b1 & 0xF)
		e.valP++
	}

	if insts.HasValC(e.icode) {
		v, ok := e.mem.ReadQuad(e.valP)
		if !ok {
			e.stat = insts.StatADR
			return
		}
		e.valC = v
		e.valP += 8
	}
}

// decode selects the source registers for the instruction family and
// reads their values into valA and valB.
func (e *Emulator) decode() {
	srcA := insts.RegNone
	switch e.icode {
	case insts.OpRRMOVQ, insts.OpRMMOVQ, insts.OpOPQ, insts.OpPUSHQ:
		srcA = e.rA
	case insts.OpPOPQ, insts.OpRET:
		srcA = insts.RegRSP
	}

	srcB := insts.RegNone
	switch e.icode {
	case insts.OpOPQ, insts.OpRMMOVQ, insts.OpMRMOVQ:
		srcB = e.rB
	case insts.OpPUSHQ, insts.OpPOPQ, insts.OpCALL, insts.OpRET:
		srcB = insts.RegRSP
	}

	e.valA = e.regs.Read(srcA)
	e.valB = e.regs.Read(srcB)
}

// execute computes valE, updates the condition flags for OPq, evaluates
// the condition for jXX and cmovXX, and raises HLT for halt.
func (e *Emulator) execute() {
	switch e.icode {
	case insts.OpOPQ:
		e.valE = e.alu.Op(insts.Fn(e.ifun), e.valA, e.valB)
	case insts.OpIRMOVQ:
		e.valE = e.valC
	case insts.OpRRMOVQ:
		e.valE = e.valA
	case insts.OpRMMOVQ, insts.OpMRMOVQ:
		e.valE = e.valB + e.valC
	case insts.OpPUSHQ, insts.OpCALL:
		e.valE = e.valB - 8
	case insts.OpPOPQ, insts.OpRET:
		e.valE = e.valB + 8
	}

	if e.icode == insts.OpJXX || e.icode == insts.OpRRMOVQ {
		e.cnd = e.cc.Eval(insts.Cond(e.ifun))
	}

	if e.icode == insts.OpHALT {
		e.stat = insts.StatHLT
	}
}

// memoryAccess performs the instruction's data-memory traffic. A bounds
// violation raises ADR; a failed read leaves 0 in valM and a failed
// write commits nothing.
func (e *Emulator) memoryAccess() {
	switch e.icode {
	case insts.OpRMMOVQ:
		e.writeQuad(e.valE, e.valA)
	case insts.OpPUSHQ:
		e.writeQuad(e.valE, e.valA)
	case insts.OpCALL:
		e.writeQuad(e.valE, e.valP)
	case insts.OpMRMOVQ:
		e.valM = e.readQuad(e.valE)
	case insts.OpPOPQ, insts.OpRET:
		e.valM = e.readQuad(e.valA)
	}
}

// writeBack writes valE to dstE, then valM to dstM. The ordering is
// part of the ISA contract: popq %rsp leaves the popped memory value in
// %rsp because the dstM write lands second.
func (e *Emulator) writeBack() {
	dstE := insts.RegNone
	switch {
	case e.icode == insts.OpRRMOVQ && e.cnd:
		dstE = e.rB
	case e.icode == insts.OpOPQ || e.icode == insts.OpIRMOVQ:
		dstE = e.rB
	case e.icode == insts.OpPUSHQ || e.icode == insts.OpPOPQ ||
		e.icode == insts.OpCALL || e.icode == insts.OpRET:
		dstE = insts.RegRSP
	}
	e.regs.Write(dstE, e.valE)

	dstM := insts.RegNone
	if e.icode == insts.OpMRMOVQ || e.icode == insts.OpPOPQ {
		dstM = e.rA
	}
	e.regs.Write(dstM, e.valM)
}

// pcUpdate advances PC. It is gated on AOK so that the final trace
// record of a faulting or halting step identifies the instruction that
// surfaced the condition.
func (e *Emulator) pcUpdate() {
	if e.stat != insts.StatAOK {
		return
	}
	switch e.icode {
	case insts.OpCALL:
		e.pc = e.valC
	case insts.OpRET:
		e.pc = e.valM
	case insts.OpJXX:
		if e.cnd {
			e.pc = e.valC
		} else {
			e.pc = e.valP
		}
	default:
		e.pc = e.valP
	}
}

// readQuad reads through the Memory-stage access path, raising ADR on a
// bounds violation.
func (e *Emulator) readQuad(addr int64) int64 {
	v, ok := e.data.ReadQuad(addr)
	if !ok {
		e.stat = insts.StatADR
	}
	return v
}

// writeQuad writes through the Memory-stage access path, raising ADR on
// a bounds violation.
func (e *Emulator) writeQuad(addr, value int64) {
	if !e.data.WriteQuad(addr, value) {
		e.stat = insts.StatADR
	}
}
