package main

import (
	"context"
	"log/slog"

	"pulsebridge/cmd/pulse-cli/commands"
	"pulsebridge/lib/osutil"
	"pulsebridge/lib/telemetry"
)

func main() {
	ctx := osutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "pulse-cli")
	if err != nil {
		slog.Warn("failed to setup telemetry", "err", err)
	}
	defer tel.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
