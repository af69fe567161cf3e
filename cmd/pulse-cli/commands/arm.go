package commands

import (
	"fmt"
	"log/slog"

	"pulsebridge/lib/scrapers/pulse"

	"github.com/spf13/cobra"
)

var clearAlarm *bool

func init() {
	clearAlarm = disarmCmd.Flags().Bool(
		"clear-alarm", false,
		"Acknowledge an active alarm while disarming.",
	)
	rootCmd.AddCommand(armCmd)
	rootCmd.AddCommand(disarmCmd)
}

var armCmd = &cobra.Command{
	Use:   "arm <away|stay>",
	Short: "Arms the system, confirming a force arm when sensors are open.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var armState pulse.ArmState
		var mode pulse.ArmMode
		switch args[0] {
		case "away":
			armState, mode = pulse.StateAway, pulse.ModeAway
		case "stay":
			armState, mode = pulse.StateStay, pulse.ModeStay
		default:
			return fmt.Errorf("unknown arm mode %q, expected away or stay", args[0])
		}

		ctx := cmd.Context()
		client := createClient(ctx)
		defer signOut(ctx, client)

		_, err := client.SetDeviceStatus(ctx, armState, mode)
		if err != nil {
			fatal("failed to arm", err)
		}
		slog.Info("arm command accepted", "mode", args[0])
		return nil
	},
}

var disarmCmd = &cobra.Command{
	Use:   "disarm [--clear-alarm]",
	Short: "Disarms the system.",
	Run: func(cmd *cobra.Command, args []string) {
		armState := pulse.StateDisarmed
		if *clearAlarm {
			armState = pulse.StateDisarmedWithAlarm
		}

		ctx := cmd.Context()
		client := createClient(ctx)
		defer signOut(ctx, client)

		_, err := client.SetDeviceStatus(ctx, armState, pulse.ModeOff)
		if err != nil {
			fatal("failed to disarm", err)
		}
		slog.Info("disarm command accepted")
	},
}
