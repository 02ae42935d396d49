// Package emu provides functional Y86-64 emulation.
package emu

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/y86sim/insts"
)

// Record is one trace record: the complete architectural state after an
// instruction has been processed. The MEM object contains only the
// 8-byte-aligned words whose value is non-zero; all 64-bit values are
// rendered as signed decimals.
type Record struct {
	PC    int64            `json:"PC"`
	Stat  int              `json:"STAT"`
	CC    FlagsRecord      `json:"CC"`
	Cache *CacheRecord     `json:"CACHE,omitempty"`
	Reg   map[string]int64 `json:"REG"`
	Mem   map[string]int64 `json:"MEM"`
}

// FlagsRecord is the condition-code portion of a trace record.
type FlagsRecord struct {
	OF int `json:"OF"`
	SF int `json:"SF"`
	ZF int `json:"ZF"`
}

// CacheRecord is the per-step cache-statistics sub-object emitted in
// verbose mode. It extends the record without altering the five core
// fields.
type CacheRecord struct {
	Hits   uint64  `json:"hits"`
	Misses uint64  `json:"misses"`
	Total  uint64  `json:"total"`
	Rate   float64 `json:"rate"`
}

// StateRecord snapshots the emulator's architectural state into a
// Record.
func (e *Emulator) StateRecord() Record {
	rec := Record{
		PC:   e.pc,
		Stat: int(e.stat),
		CC: FlagsRecord{
			OF: boolToInt(e.cc.OF),
			SF: boolToInt(e.cc.SF),
			ZF: boolToInt(e.cc.ZF),
		},
		Reg: make(map[string]int64, insts.NumRegs),
		Mem: map[string]int64{},
	}

	for i := 0; i < insts.NumRegs; i++ {
		rec.Reg[insts.RegNames[i]] = e.regs.Read(insts.RegID(i))
	}

	for addr := int64(0); addr < MemSize; addr += 8 {
		v, _ := e.mem.ReadQuad(addr)
		if v != 0 {
			rec.Mem[strconv.FormatInt(addr, 10)] = v
		}
	}

	return rec
}

// TraceOption is a functional option for configuring a TraceWriter.
type TraceOption func(*TraceWriter)

// WithCacheStats makes the writer append the CACHE sub-object to every
// record, provided the emulator's data accessor exposes statistics.
func WithCacheStats() TraceOption {
	return func(tw *TraceWriter) {
		tw.cacheStats = true
	}
}

// TraceWriter serialises trace records as a single bracketed JSON
// sequence: an opening bracket line, one comma-separated record per
// line, and a closing bracket line.
type TraceWriter struct {
	w          io.Writer
	cacheStats bool
	first      bool
	err        error
}

// NewTraceWriter creates a trace writer emitting to w.
func NewTraceWriter(w io.Writer, opts ...TraceOption) *TraceWriter {
	tw := &TraceWriter{w: w, first: true}
	for _, opt := range opts {
		opt(tw)
	}
	return tw
}

// Begin emits the opening bracket.
func (tw *TraceWriter) Begin() {
	tw.print("[\n")
}

// WriteState snapshots the emulator and emits one record. Records after
// the first are prefixed with a comma.
func (tw *TraceWriter) WriteState(e *Emulator) {
	rec := e.StateRecord()
	if tw.cacheStats {
		if stats, ok := e.DataAccessor().(AccessStats); ok {
			rec.Cache = cacheRecord(stats)
		}
	}
	tw.WriteRecord(rec)
}

// WriteRecord emits a single record.
func (tw *TraceWriter) WriteRecord(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		if tw.err == nil {
			tw.err = err
		}
		return
	}
	if tw.first {
		tw.first = false
	} else {
		tw.print(",")
	}
	tw.print(string(data) + "\n")
}

// End emits the closing bracket.
func (tw *TraceWriter) End() {
	tw.print("]\n")
}

// Err returns the first error encountered while writing, if any.
func (tw *TraceWriter) Err() error {
	return tw.err
}

func (tw *TraceWriter) print(s string) {
	if tw.err != nil {
		return
	}
	if _, err := fmt.Fprint(tw.w, s); err != nil {
		tw.err = err
	}
}

func cacheRecord(stats AccessStats) *CacheRecord {
	rec := &CacheRecord{
		Hits:   stats.HitCount(),
		Misses: stats.MissCount(),
	}
	rec.Total = rec.Hits + rec.Misses
	if rec.Total > 0 {
		rec.Rate = float64(rec.Hits) / float64(rec.Total) * 100.0
	}
	return rec
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
