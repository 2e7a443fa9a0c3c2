package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/log"
)

// Logger builds this tool's structured logger the way the rest of this
// lineage's CLIs do: a logfmt handler over the given writer, at the given
// level.
func Logger(w io.Writer, lvl slog.Level) log.Logger {
	return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl))
}

// HexU64 lazy-formats a 64-bit value as a fixed-width hex string for log
// attributes, avoiding a Sprintf call on every log line below the
// configured level.
type HexU64 uint64

func (v HexU64) String() string { return fmt.Sprintf("%016x", uint64(v)) }

func (v HexU64) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// HexU32 is HexU64's 32-bit counterpart, for instruction words.
type HexU32 uint32

func (v HexU32) String() string { return fmt.Sprintf("%08x", uint32(v)) }

func (v HexU32) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
