package main

import (
	"encoding/json"
	"fmt"
	"time"

	"carcare/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	telemetryJSON           bool
	telemetryFailOnCritical bool
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry [snapshot]",
	Short: "Check a sensor snapshot (YAML or JSON) against safety thresholds",
	Args:  cobra.ExactArgs(1),
	RunE:  runTelemetry,
}

func runTelemetry(cmd *cobra.Command, args []string) error {
	snap, err := telemetry.LoadSnapshot(args[0])
	if err != nil {
		return err
	}
	alerts := telemetry.Analyze(snap, time.Now())

	out := cmd.OutOrStdout()
	if telemetryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if alerts == nil {
			alerts = []telemetry.Alert{}
		}
		if err := enc.Encode(alerts); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, telemetry.FormatSummary(alerts))
	}

	if critical, _ := telemetry.CountByLevel(alerts); telemetryFailOnCritical && critical > 0 {
		return fmt.Errorf("%d critical alert(s)", critical)
	}
	return nil
}
