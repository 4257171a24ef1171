package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/Achierius/amazon-transaction-scraper/cmd/amazon-orders-cli/commands"
	"github.com/Achierius/amazon-transaction-scraper/lib/serviceutil"
	"github.com/Achierius/amazon-transaction-scraper/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	// telemetry is opt-in for the cli, no telemetry.json5 means no
	// exporters
	tel, err := telemetry.SetupFromEnv(ctx, "amazon-orders-cli")
	if err == nil {
		defer tel.Shutdown(ctx)
		telemetry.InstrumentPerfStats(ctx)
	} else if !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to setup telemetry", "err", err)
	}

	commands.ExecuteContext(ctx)
}
