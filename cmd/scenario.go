package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/coredump-labs/armatomic/core"
)

// RegSnapshot is the JSON shape of a trapped machine context, in and out:
// a replay scenario's starting register file, and the replay result's
// ending one.
type RegSnapshot struct {
	Regs [31]hexutil.Uint64 `json:"regs"`
	Sp   hexutil.Uint64     `json:"sp"`
	Pc   hexutil.Uint64     `json:"pc"`
}

func snapshotRegs(ctx *core.SignalContext64) RegSnapshot {
	var out RegSnapshot
	for i, r := range ctx.Regs {
		out.Regs[i] = hexutil.Uint64(r)
	}
	out.Sp = hexutil.Uint64(ctx.Sp)
	out.Pc = hexutil.Uint64(ctx.Pc)
	return out
}

func (rs RegSnapshot) toContext() *core.SignalContext64 {
	ctx := &core.SignalContext64{Sp: uint64(rs.Sp), Pc: uint64(rs.Pc)}
	for i, r := range rs.Regs {
		ctx.Regs[i] = uint64(r)
	}
	return ctx
}

// MemSeed patches raw bytes into a scenario's memory image before replay.
type MemSeed struct {
	Addr hexutil.Uint64 `json:"addr"`
	Data hexutil.Bytes  `json:"data"`
}

// FaultSpec is the JSON shape of core.Fault. InstrWord and TrailingWords
// are widened to hexutil.Uint64 for readability; only their low 32 bits
// are meaningful.
type FaultSpec struct {
	SignalCode    string           `json:"signal_code"`
	FaultingPC    hexutil.Uint64   `json:"faulting_pc"`
	InstrWord     hexutil.Uint64   `json:"instr_word"`
	TrailingWords []hexutil.Uint64 `json:"trailing_words,omitempty"`
}

func (fs FaultSpec) toFault() (core.Fault, error) {
	var code core.SignalCode
	switch fs.SignalCode {
	case "", "alignment":
		code = core.SigAlignment
	case "other":
		code = core.SigOther
	default:
		return core.Fault{}, fmt.Errorf("unrecognized signal_code %q", fs.SignalCode)
	}
	trailing := make([]uint32, len(fs.TrailingWords))
	for i, w := range fs.TrailingWords {
		trailing[i] = uint32(w)
	}
	return core.Fault{
		SignalCode:    code,
		FaultingPC:    uint64(fs.FaultingPC),
		InstrWord:     uint32(fs.InstrWord),
		TrailingWords: trailing,
	}, nil
}

// Scenario is the on-disk fixture format for the replay and telemetry
// subcommands: a starting register file, a fault descriptor, and a sparse
// memory image to seed before dispatch.
type Scenario struct {
	Registers RegSnapshot `json:"registers"`
	Fault     FaultSpec   `json:"fault"`
	Memory    []MemSeed   `json:"memory,omitempty"`
}

func loadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	var s Scenario
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario json: %w", err)
	}
	return &s, nil
}

func (s *Scenario) buildMemory() *core.Memory {
	mem := core.NewMemory()
	for _, seed := range s.Memory {
		mem.SetUnaligned(uint64(seed.Addr), []byte(seed.Data))
	}
	return mem
}

// ReplayResult is the replay subcommand's JSON output.
type ReplayResult struct {
	Handled   bool          `json:"handled"`
	Error     string        `json:"error,omitempty"`
	Registers RegSnapshot   `json:"registers"`
	Telemetry core.Snapshot `json:"telemetry"`
}
