package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Telemetry replays the same scenario as the replay subcommand but prints
// only the resulting counters, the shape a monitoring script polling this
// tool would want rather than a full register dump.
func Telemetry(cctx *cli.Context) error {
	if cctx.Args().Len() != 1 {
		return fmt.Errorf("usage: telemetry <scenario.json>")
	}
	path := cctx.Args().First()

	l := Logger(os.Stderr, logLevel(cctx))

	_, _, _, tele, handled, herr := runScenario(path)
	if tele == nil {
		return herr
	}
	snap := tele.Snapshot()

	l.Info("telemetry",
		"handled", handled,
		"split_16byte", snap.Split16Byte,
		"split_lock_across_cacheline", snap.SplitAcrossCacheline,
	)
	if herr != nil {
		l.Warn("scenario reported an error", "err", herr)
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling telemetry snapshot: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

var TelemetryCommand = &cli.Command{
	Name:      "telemetry",
	Usage:     "Print the split-lock telemetry counters observed replaying a scenario",
	ArgsUsage: "<scenario.json>",
	Action:    Telemetry,
	Flags:     []cli.Flag{VerboseFlag},
}
