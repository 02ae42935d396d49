package emu_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

var _ = Describe("Emulator", func() {
	Describe("Reset state", func() {
		It("should start at PC 0 in AOK with ZF set", func() {
			e := emu.NewEmulator()

			Expect(e.PC()).To(Equal(int64(0)))
			Expect(e.Stat()).To(Equal(insts.StatAOK))
			Expect(e.CondCodes().ZF).To(BeTrue())
		})
	})

	Describe("irmovq", func() {
		It("should load the immediate and advance PC past the encoding", func() {
			e := newProg().irmovq(10, insts.RegRDX).emulator()

			e.Step()

			Expect(e.RegFile().Read(insts.RegRDX)).To(Equal(int64(10)))
			Expect(e.PC()).To(Equal(int64(10)))
			Expect(e.Stat()).To(Equal(insts.StatAOK))
		})

		It("should not touch the condition flags", func() {
			e := newProg().irmovq(-1, insts.RegRAX).emulator()

			e.Step()

			Expect(e.CondCodes().ZF).To(BeTrue())
			Expect(e.CondCodes().SF).To(BeFalse())
			Expect(e.CondCodes().OF).To(BeFalse())
		})
	})

	Describe("rrmovq", func() {
		It("should copy the source register", func() {
			e := newProg().
				irmovq(77, insts.RegRAX).
				rrmovq(insts.RegRAX, insts.RegRBX).
				emulator()

			stepAll(e, 2)

			Expect(e.RegFile().Read(insts.RegRBX)).To(Equal(int64(77)))
		})
	})

	Describe("OPq", func() {
		It("should execute addq %rdx,%rax", func() {
			e := newProg().
				irmovq(10, insts.RegRDX).
				irmovq(3, insts.RegRAX).
				opq(insts.FnADD, insts.RegRDX, insts.RegRAX).
				halt().
				emulator()

			stepAll(e, 3)

			Expect(e.RegFile().Read(insts.RegRAX)).To(Equal(int64(13)))
			Expect(e.CondCodes().ZF).To(BeFalse())
			Expect(e.CondCodes().SF).To(BeFalse())
			Expect(e.CondCodes().OF).To(BeFalse())
		})

		It("should set ZF when subq cancels a register against itself", func() {
			e := newProg().
				irmovq(5, insts.RegRAX).
				opq(insts.FnSUB, insts.RegRAX, insts.RegRAX).
				halt().
				emulator()

			stepAll(e, 3)

			Expect(e.RegFile().Read(insts.RegRAX)).To(Equal(int64(0)))
			Expect(e.CondCodes().ZF).To(BeTrue())
			Expect(e.CondCodes().SF).To(BeFalse())
			Expect(e.CondCodes().OF).To(BeFalse())
			Expect(e.Stat()).To(Equal(insts.StatHLT))
		})

		It("should not flag overflow when subq of -1 from the minimum value stays in range", func() {
			e := newProg().
				irmovq(math.MinInt64, insts.RegRAX).
				irmovq(-1, insts.RegRBX).
				opq(insts.FnSUB, insts.RegRBX, insts.RegRAX).
				halt().
				emulator()

			stepAll(e, 3)

			Expect(e.RegFile().Read(insts.RegRAX)).To(Equal(int64(math.MinInt64 + 1)))
			Expect(e.CondCodes().OF).To(BeFalse())
			Expect(e.CondCodes().SF).To(BeTrue())
			Expect(e.CondCodes().ZF).To(BeFalse())
		})
	})

	Describe("Conditional moves", func() {
		It("should take cmovg after a positive comparison", func() {
			e := newProg().
				irmovq(1, insts.RegRAX).
				irmovq(2, insts.RegRBX).
				opq(insts.FnSUB, insts.RegRAX, insts.RegRBX).
				cmov(insts.CondG, insts.RegRAX, insts.RegRCX).
				emulator()

			stepAll(e, 4)

			Expect(e.RegFile().Read(insts.RegRCX)).To(Equal(int64(1)))
		})

		It("should suppress cmovg after a negative comparison", func() {
			e := newProg().
				irmovq(2, insts.RegRAX).
				irmovq(1, insts.RegRBX).
				opq(insts.FnSUB, insts.RegRAX, insts.RegRBX).
				cmov(insts.CondG, insts.RegRAX, insts.RegRCX).
				emulator()

			stepAll(e, 4)

			Expect(e.RegFile().Read(insts.RegRCX)).To(Equal(int64(0)))
		})

		It("should suppress moves with out-of-range condition codes", func() {
			e := newProg().
				irmovq(42, insts.RegRAX).
				cmov(insts.Cond(7), insts.RegRAX, insts.RegRCX).
				emulator()

			stepAll(e, 2)

			Expect(e.RegFile().Read(insts.RegRCX)).To(Equal(int64(0)))
			Expect(e.Stat()).To(Equal(insts.StatAOK))
		})
	})

	Describe("Memory instructions", func() {
		It("should round-trip a value through rmmovq and mrmovq", func() {
			e := newProg().
				irmovq(0x1000, insts.RegRBP).
				irmovq(-123456789, insts.RegRAX).
				rmmovq(insts.RegRAX, 16, insts.RegRBP).
				mrmovq(16, insts.RegRBP, insts.RegRBX).
				emulator()

			stepAll(e, 4)

			Expect(e.RegFile().Read(insts.RegRBX)).To(Equal(int64(-123456789)))
		})

		It("should round-trip at a misaligned address", func() {
			e := newProg().
				irmovq(0x1003, insts.RegRBP).
				irmovq(0x1122334455667788, insts.RegRAX).
				rmmovq(insts.RegRAX, 0, insts.RegRBP).
				mrmovq(0, insts.RegRBP, insts.RegRCX).
				emulator()

			stepAll(e, 4)

			Expect(e.RegFile().Read(insts.RegRCX)).To(Equal(int64(0x1122334455667788)))
		})
	})

	Describe("Stack instructions", func() {
		It("should push and pop through distinct registers", func() {
			e := newProg().
				irmovq(0x2000, insts.RegRSP).
				irmovq(99, insts.RegRAX).
				pushq(insts.RegRAX).
				popq(insts.RegRBX).
				emulator()

			stepAll(e, 4)

			Expect(e.RegFile().Read(insts.RegRBX)).To(Equal(int64(99)))
			Expect(e.RegFile().Read(insts.RegRSP)).To(Equal(int64(0x2000)))
		})

		It("should push the old value of %rsp", func() {
			e := newProg().
				irmovq(0x2000, insts.RegRSP).
				pushq(insts.RegRSP).
				mrmovq(0, insts.RegRSP, insts.RegRAX).
				emulator()

			stepAll(e, 3)

			Expect(e.RegFile().Read(insts.RegRSP)).To(Equal(int64(0x1FF8)))
			Expect(e.RegFile().Read(insts.RegRAX)).To(Equal(int64(0x2000)))
		})

		It("should leave the popped memory value in %rsp for popq %rsp", func() {
			e := newProg().
				irmovq(0x2000, insts.RegRSP).
				irmovq(0x3000, insts.RegRAX).
				rmmovq(insts.RegRAX, 0, insts.RegRSP).
				popq(insts.RegRSP).
				emulator()

			stepAll(e, 4)

			// dstM lands after dstE: the memory value wins over rsp+8.
			Expect(e.RegFile().Read(insts.RegRSP)).To(Equal(int64(0x3000)))
		})
	})

	Describe("Jumps", func() {
		It("should take an unconditional jump", func() {
			e := newProg().jxx(insts.CondAlways, 0x100).emulator()

			e.Step()

			Expect(e.PC()).To(Equal(int64(0x100)))
		})

		It("should fall through an untaken conditional jump", func() {
			// ZF is set at reset, so jne is not taken.
			e := newProg().jxx(insts.CondNE, 0x100).emulator()

			e.Step()

			Expect(e.PC()).To(Equal(int64(9)))
		})
	})

	Describe("call and ret", func() {
		It("should save the return address and come back", func() {
			// 0x00: irmovq $0x1000,%rsp
			// 0x0a: call 0x20
			// 0x13: halt
			// 0x20: irmovq $7,%rax ; ret
			p := newProg().
				irmovq(0x1000, insts.RegRSP).
				call(0x20).
				halt()
			sub := newProg().irmovq(7, insts.RegRAX).ret()

			mem := emu.NewMemory()
			p.loadAt(mem, 0)
			sub.loadAt(mem, 0x20)
			e := emu.NewEmulator(emu.WithMemory(mem))

			stepAll(e, 2)
			Expect(e.PC()).To(Equal(int64(0x20)))
			Expect(e.RegFile().Read(insts.RegRSP)).To(Equal(int64(0xFF8)))
			v, _ := e.Memory().ReadQuad(0xFF8)
			Expect(v).To(Equal(int64(0x13)))

			stepAll(e, 2)
			Expect(e.PC()).To(Equal(int64(0x13)))
			Expect(e.RegFile().Read(insts.RegRSP)).To(Equal(int64(0x1000)))

			e.Step()
			Expect(e.Stat()).To(Equal(insts.StatHLT))
		})
	})

	Describe("halt", func() {
		It("should leave PC at the halt instruction", func() {
			e := newProg().nop().nop().halt().emulator()

			stepAll(e, 3)

			Expect(e.Stat()).To(Equal(insts.StatHLT))
			Expect(e.PC()).To(Equal(int64(2)))
		})

		It("should make further steps no-ops", func() {
			e := newProg().halt().emulator()

			stepAll(e, 3)

			Expect(e.Stat()).To(Equal(insts.StatHLT))
			Expect(e.PC()).To(Equal(int64(0)))
			Expect(e.InstructionCount()).To(Equal(uint64(1)))
		})
	})

	Describe("Faults", func() {
		It("should raise INS on an invalid instruction code and freeze PC", func() {
			e := newProg().nop().raw(0xC0).emulator()

			stepAll(e, 2)

			Expect(e.Stat()).To(Equal(insts.StatINS))
			Expect(e.PC()).To(Equal(int64(1)))
		})

		It("should raise ADR when fetching outside memory", func() {
			e := newProg().jxx(insts.CondAlways, 0x20000).emulator()

			e.Step()
			Expect(e.PC()).To(Equal(int64(0x20000)))

			e.Step()
			Expect(e.Stat()).To(Equal(insts.StatADR))
			Expect(e.PC()).To(Equal(int64(0x20000)))
		})

		It("should raise ADR when an instruction straddles the end of memory", func() {
			mem := emu.NewMemory()
			// irmovq opcode and register byte, constant out of range.
			mem.WriteByte(emu.MemSize-2, byte(insts.OpIRMOVQ)<<4)
			mem.WriteByte(emu.MemSize-1, byte(insts.RegNone)<<4|byte(insts.RegRAX))
			e := emu.NewEmulator(emu.WithMemory(mem))

			jump := newProg().jxx(insts.CondAlways, emu.MemSize-2)
			jump.loadAt(mem, 0)

			stepAll(e, 2)

			Expect(e.Stat()).To(Equal(insts.StatADR))
			Expect(e.PC()).To(Equal(int64(emu.MemSize - 2)))
		})

		It("should raise ADR on a memory-stage read past the end of memory", func() {
			e := newProg().
				irmovq(emu.MemSize, insts.RegRAX).
				mrmovq(0, insts.RegRAX, insts.RegRBX).
				halt().
				emulator()

			stepAll(e, 2)

			Expect(e.Stat()).To(Equal(insts.StatADR))
			// PC stays at the faulting mrmovq.
			Expect(e.PC()).To(Equal(int64(10)))
			// The failed read still writes 0 back to the destination.
			Expect(e.RegFile().Read(insts.RegRBX)).To(Equal(int64(0)))
		})

		It("should raise ADR on a memory-stage write to a negative address", func() {
			e := newProg().
				irmovq(-8, insts.RegRBP).
				irmovq(1, insts.RegRAX).
				rmmovq(insts.RegRAX, 0, insts.RegRBP).
				emulator()

			stepAll(e, 3)

			Expect(e.Stat()).To(Equal(insts.StatADR))
			Expect(e.PC()).To(Equal(int64(20)))
		})
	})

	Describe("WithMaxInstructions", func() {
		It("should stop the run loop at the limit", func() {
			p := newProg().jxx(insts.CondAlways, 0)
			e := p.emulator(emu.WithMaxInstructions(5))

			tw := emu.NewTraceWriter(discardWriter{})
			e.Run(tw)

			Expect(e.InstructionCount()).To(Equal(uint64(5)))
			Expect(e.Stat()).To(Equal(insts.StatAOK))
		})
	})
})

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) {
	return len(p), nil
}
