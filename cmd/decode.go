package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/coredump-labs/armatomic/core"
)

var VerboseFlag = &cli.BoolFlag{
	Name:  "verbose",
	Usage: "enable debug-level logging",
}

func logLevel(cctx *cli.Context) slog.Level {
	if cctx.Bool(VerboseFlag.Name) {
		return log.LevelDebug
	}
	return log.LevelInfo
}

func parseHexWord(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a hex instruction word: %w", s, err)
	}
	return uint32(v), nil
}

func Decode(cctx *cli.Context) error {
	args := cctx.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("usage: decode <hex-instr> [<hex-trailing-instr>...]")
	}

	instr, err := parseHexWord(args[0])
	if err != nil {
		return err
	}
	trailing := make([]uint32, 0, len(args)-1)
	for _, a := range args[1:] {
		w, err := parseHexWord(a)
		if err != nil {
			return err
		}
		trailing = append(trailing, w)
	}

	l := Logger(os.Stderr, logLevel(cctx))
	l.Debug("decoding", "instr", HexU32(instr), "trailing", len(trailing))

	decoded, err := core.Decode(instr, trailing)
	if err != nil {
		return fmt.Errorf("decode %s: %w", HexU32(instr), err)
	}

	out, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling decoded instruction: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

var DecodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "Decode a faulting ARM64 atomic instruction word",
	ArgsUsage: "<hex-instr> [<hex-trailing-instr>...]",
	Description: "Decodes a single instruction word into its recognized atomic form. " +
		"For an LDAXR that may head an LL/SC sequence, pass the following instruction " +
		"words (ALU op, STLXR, CBNZ) as additional arguments so the sequence can be " +
		"reconstructed the way the fault handler would.",
	Action: Decode,
	Flags:  []cli.Flag{VerboseFlag},
}
