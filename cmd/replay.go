package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/coredump-labs/armatomic/core"
)

func runScenario(path string) (*Scenario, *core.SignalContext64, *core.Memory, *core.Telemetry, bool, error) {
	scn, err := loadScenario(path)
	if err != nil {
		return nil, nil, nil, nil, false, err
	}
	ctx := scn.Registers.toContext()
	mem := scn.buildMemory()
	tele := &core.Telemetry{}

	fault, err := scn.Fault.toFault()
	if err != nil {
		return scn, ctx, mem, tele, false, err
	}

	handled, herr := core.Handle(ctx, mem, tele, fault)
	return scn, ctx, mem, tele, handled, herr
}

func Replay(cctx *cli.Context) error {
	if cctx.Args().Len() != 1 {
		return fmt.Errorf("usage: replay <scenario.json>")
	}
	path := cctx.Args().First()

	l := Logger(os.Stderr, logLevel(cctx))
	l.Info("replaying scenario", "path", path)

	_, ctx, _, tele, handled, herr := runScenario(path)
	if ctx == nil {
		return herr
	}

	result := ReplayResult{
		Handled:   handled,
		Registers: snapshotRegs(ctx),
		Telemetry: tele.Snapshot(),
	}
	if herr != nil {
		result.Error = herr.Error()
	}

	l.Info("replay complete",
		"handled", handled,
		"pc", HexU64(ctx.Pc),
		"split_16byte", result.Telemetry.Split16Byte,
		"split_lock_across_cacheline", result.Telemetry.SplitAcrossCacheline,
	)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling replay result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

var ReplayCommand = &cli.Command{
	Name:      "replay",
	Usage:     "Replay a captured fault against a JSON scenario fixture",
	ArgsUsage: "<scenario.json>",
	Description: "Loads a register file, fault descriptor, and sparse memory image from a " +
		"JSON fixture, runs it through the same dispatch a live signal handler would use, " +
		"and prints the resulting register file and telemetry snapshot.",
	Action: Replay,
	Flags:  []cli.Flag{VerboseFlag},
}
