// Package loader parses textual Y86-64 program images.
//
// An image is free-form text. A line containing both "0x" and ":" is a
// data line; every other line is ignored. On a data line the hexadecimal
// address runs from the first "0x" to the first following ":", and the
// payload after the ":" (up to a "|" if one is present, otherwise to end
// of line) has all whitespace removed and is then read as a sequence of
// hexadecimal byte pairs stored at successive addresses.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/y86sim/emu"
)

// Segment is a contiguous run of program bytes at a fixed address.
type Segment struct {
	// Addr is the address of the first byte.
	Addr int64
	// Data contains the segment contents.
	Data []byte
}

// Program represents a parsed program image ready for loading into the
// emulator's memory.
type Program struct {
	// Segments contains one entry per data line of the image, in input
	// order. Segments may overlap; later ones win.
	Segments []Segment
}

// Load parses a program image from r. Malformed lines are ignored, not
// errors; only a failure of the underlying reader is reported.
func Load(r io.Reader) (*Program, error) {
	prog := &Program{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if seg, ok := parseLine(scanner.Text()); ok {
			prog.Segments = append(prog.Segments, seg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program image: %w", err)
	}

	return prog, nil
}

// LoadInto parses a program image from r and stores it into mem. Bytes
// addressed outside memory are silently discarded.
func LoadInto(r io.Reader, mem *emu.Memory) error {
	prog, err := Load(r)
	if err != nil {
		return err
	}
	prog.Apply(mem)
	return nil
}

// Apply stores the program's segments into mem, discarding bytes
// addressed outside memory.
func (p *Program) Apply(mem *emu.Memory) {
	for _, seg := range p.Segments {
		for i, b := range seg.Data {
			mem.WriteByte(seg.Addr+int64(i), b)
		}
	}
}

// parseLine extracts the segment encoded on a single image line. The
// second return value is false for lines that carry no data: blank
// lines, comments, lines without both markers, and data lines whose
// address or payload yields no bytes.
func parseLine(line string) (Segment, bool) {
	addrPos := strings.Index(line, "0x")
	if addrPos < 0 {
		return Segment{}, false
	}
	colonPos := strings.Index(line[addrPos:], ":")
	if colonPos < 0 {
		return Segment{}, false
	}
	colonPos += addrPos

	addr, err := strconv.ParseInt(strings.TrimSpace(line[addrPos+2:colonPos]), 16, 64)
	if err != nil {
		return Segment{}, false
	}

	payload := line[colonPos+1:]
	if pipePos := strings.Index(payload, "|"); pipePos >= 0 {
		payload = payload[:pipePos]
	}

	var clean strings.Builder
	for _, c := range payload {
		if !isSpace(c) {
			clean.WriteRune(c)
		}
	}

	hex := clean.String()
	data := make([]byte, 0, len(hex)/2)
	// An odd trailing character is discarded.
	for i := 0; i+1 < len(hex); i += 2 {
		b, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			break
		}
		data = append(data, byte(b))
	}
	if len(data) == 0 {
		return Segment{}, false
	}

	return Segment{Addr: addr, Data: data}, true
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}
