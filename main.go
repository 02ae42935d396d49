// Package main provides the entry point for y86sim.
// y86sim is a sequential Y86-64 instruction-set simulator.
//
// For the full CLI, use: go run ./cmd/y86sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("y86sim - Y86-64 Instruction Set Simulator")
	fmt.Println("")
	fmt.Println("Usage: y86sim [options] [image-file]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -v         Emit per-step cache statistics")
	fmt.Println("  -asm       Treat the input as assembly source")
	fmt.Println("  -max       Maximum instructions to execute")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/y86sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/y86sim' instead.")
	}
}
