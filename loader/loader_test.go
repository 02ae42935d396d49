package loader_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/loader"
)

var _ = Describe("Loader", func() {
	load := func(image string) *emu.Memory {
		mem := emu.NewMemory()
		Expect(loader.LoadInto(strings.NewReader(image), mem)).To(Succeed())
		return mem
	}

	byteAt := func(mem *emu.Memory, addr int64) byte {
		b, ok := mem.ReadByte(addr)
		Expect(ok).To(BeTrue())
		return b
	}

	It("should store payload bytes at successive addresses", func() {
		mem := load("0x000: 30f20a00000000000000\n")

		Expect(byteAt(mem, 0)).To(Equal(byte(0x30)))
		Expect(byteAt(mem, 1)).To(Equal(byte(0xF2)))
		Expect(byteAt(mem, 2)).To(Equal(byte(0x0A)))
		Expect(byteAt(mem, 9)).To(Equal(byte(0x00)))
	})

	It("should honour the line address", func() {
		mem := load("0x014: 10\n0x017: 6020\n")

		Expect(byteAt(mem, 0x14)).To(Equal(byte(0x10)))
		Expect(byteAt(mem, 0x17)).To(Equal(byte(0x60)))
		Expect(byteAt(mem, 0x18)).To(Equal(byte(0x20)))
	})

	It("should stop the payload at a pipe", func() {
		mem := load("0x000: 1011 | irmovq $1,%rax comment 22\n")

		Expect(byteAt(mem, 0)).To(Equal(byte(0x10)))
		Expect(byteAt(mem, 1)).To(Equal(byte(0x11)))
		Expect(byteAt(mem, 2)).To(Equal(byte(0x00)))
	})

	It("should strip whitespace inside the payload", func() {
		mem := load("0x000: 10 20\t30\n")

		Expect(byteAt(mem, 0)).To(Equal(byte(0x10)))
		Expect(byteAt(mem, 1)).To(Equal(byte(0x20)))
		Expect(byteAt(mem, 2)).To(Equal(byte(0x30)))
	})

	It("should discard an odd trailing hex digit", func() {
		mem := load("0x000: 10205\n")

		Expect(byteAt(mem, 0)).To(Equal(byte(0x10)))
		Expect(byteAt(mem, 1)).To(Equal(byte(0x20)))
		Expect(byteAt(mem, 2)).To(Equal(byte(0x00)))
	})

	It("should ignore lines without both markers", func() {
		mem := load("just a comment\n0x000 missing colon\nno address: 10\n")

		Expect(byteAt(mem, 0)).To(Equal(byte(0x00)))
	})

	It("should ignore blank lines and keep parsing", func() {
		mem := load("\n\n0x005: ff\n\n")

		Expect(byteAt(mem, 5)).To(Equal(byte(0xFF)))
	})

	It("should silently discard bytes past the end of memory", func() {
		mem := load("0xFFFF: aabb\n")

		Expect(byteAt(mem, emu.MemSize-1)).To(Equal(byte(0xAA)))
		// The second byte fell outside memory; nothing else changed.
		Expect(byteAt(mem, 0)).To(Equal(byte(0x00)))
	})

	Describe("Load", func() {
		It("should return segments in input order", func() {
			prog, err := loader.Load(strings.NewReader("0x00a: 1122\n0x000: 33\n"))
			Expect(err).NotTo(HaveOccurred())

			Expect(prog.Segments).To(HaveLen(2))
			Expect(prog.Segments[0].Addr).To(Equal(int64(0x0A)))
			Expect(prog.Segments[0].Data).To(Equal([]byte{0x11, 0x22}))
			Expect(prog.Segments[1].Addr).To(Equal(int64(0x00)))
			Expect(prog.Segments[1].Data).To(Equal([]byte{0x33}))
		})

		It("should produce no segments for an empty image", func() {
			prog, err := loader.Load(strings.NewReader(""))
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(BeEmpty())
		})
	})
})
