// Command sheets-init prepares the mirror spreadsheet by writing the column
// header row of every sheet that is still empty. Running it twice is harmless.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"time"

	"bottega/internal/cli"
	"bottega/internal/log"
	gsheet "bottega/internal/sheets/google"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentSheets)
	if !cfg.SheetsEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is not set, nothing to initialize")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	client, err := gsheet.NewFromConfig(ctx, cfg, logger.Slog())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	initialized, err := client.EnsureHeaders(ctx)
	if err != nil {
		logger.Error("Failed to write sheet headers", log.FieldError, err)
		os.Exit(1)
	}
	if len(initialized) == 0 {
		logger.Info("All sheets already have headers", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return
	}
	logger.Info("Sheet headers written",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheets", strings.Join(initialized, ","))
}
