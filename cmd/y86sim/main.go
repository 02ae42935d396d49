// Package main provides the entry point for y86sim.
// y86sim is a sequential Y86-64 instruction-set simulator.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/sarchlab/y86sim/asm"
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/loader"
	"github.com/sarchlab/y86sim/timing/cache"
)

var (
	verbose  = flag.Bool("v", env.Bool("Y86SIM_VERBOSE"), "Emit per-step cache statistics")
	assemble = flag.Bool("asm", false, "Treat the input as assembly source instead of an image")
	maxInsts = flag.Uint64("max", uint64(env.Int("Y86SIM_MAX", 0)), "Maximum instructions to execute (0 = no limit)")
)

func main() {
	flag.Parse()

	input := io.Reader(os.Stdin)
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening program: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		input = f
	}

	memory := emu.NewMemory()
	if err := loadInput(input, memory); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	opts := []emu.EmulatorOption{
		emu.WithMemory(memory),
		emu.WithMaxInstructions(*maxInsts),
	}
	traceOpts := []emu.TraceOption{}
	if *verbose {
		c := cache.New(cache.DefaultConfig(), cache.NewMemoryBacking(memory))
		opts = append(opts, emu.WithDataAccessor(c))
		traceOpts = append(traceOpts, emu.WithCacheStats())
	}

	emulator := emu.NewEmulator(opts...)
	tw := emu.NewTraceWriter(os.Stdout, traceOpts...)

	emulator.Run(tw)

	if err := tw.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing trace: %v\n", err)
		os.Exit(1)
	}
}

// loadInput populates memory from the input stream: an image text by
// default, or assembly source with -asm.
func loadInput(r io.Reader, memory *emu.Memory) error {
	if !*assemble {
		return loader.LoadInto(r, memory)
	}

	source, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}
	code, err := asm.NewAssembler().Assemble(string(source))
	if err != nil {
		return err
	}
	if len(code) > emu.MemSize {
		fmt.Fprintf(os.Stderr, "Warning: program truncated to %d bytes\n", emu.MemSize)
	}
	for i, b := range code {
		memory.WriteByte(int64(i), b)
	}
	return nil
}

// usage prints command help to stderr.
func usage() {
	name := os.Args[0]
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	fmt.Fprintf(os.Stderr, "Usage: %s [options] [image-file]\n", name)
	fmt.Fprintf(os.Stderr, "\nReads a Y86-64 program image from the file or stdin and writes\n")
	fmt.Fprintf(os.Stderr, "the execution trace to stdout.\n\nOptions:\n")
	flag.PrintDefaults()
}

func init() {
	flag.Usage = usage
}
