// Package main provides the entry point for y86asm.
// y86asm assembles Y86-64 assembly source into the image-text format
// consumed by y86sim.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/y86sim/asm"
)

const bytesPerLine = 16

func main() {
	flag.Parse()

	input := io.Reader(os.Stdin)
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening source: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		input = f
	}

	source, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading source: %v\n", err)
		os.Exit(1)
	}

	code, err := asm.NewAssembler().Assemble(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Assembly failed: %v\n", err)
		os.Exit(1)
	}

	writeImage(os.Stdout, code)
}

// writeImage renders machine code as image text, one line per 16-byte
// row, omitting rows that are entirely zero (memory starts zeroed).
func writeImage(w io.Writer, code []byte) {
	for start := 0; start < len(code); start += bytesPerLine {
		end := start + bytesPerLine
		if end > len(code) {
			end = len(code)
		}
		row := code[start:end]

		if allZero(row) {
			continue
		}

		fmt.Fprintf(w, "0x%03x: ", start)
		for _, b := range row {
			fmt.Fprintf(w, "%02x", b)
		}
		fmt.Fprintln(w)
	}
}

func allZero(row []byte) bool {
	for _, b := range row {
		if b != 0 {
			return false
		}
	}
	return true
}
