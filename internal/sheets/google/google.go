package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bottega/internal/config"
	"bottega/internal/core"
	"bottega/internal/log"
	ports "bottega/internal/sheets"
)

var _ ports.RecordAppender = (*Client)(nil)

var ErrNotInitialized = errors.New("sheets service not initialized")

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	salesSheet    string
	expensesSheet string
	logger        *slog.Logger
}

// Options selects the spreadsheet and its per-kind sheets.
type Options struct {
	SpreadsheetID   string
	SalesSheet      string
	ExpensesSheet   string
	CredentialsJSON []byte
}

// NewFromConfig creates a Sheets client authenticated with the service
// account from GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.GoogleSpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := serviceAccountJSON(cfg)
	if err != nil {
		return nil, err
	}
	return New(ctx, Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SalesSheet:      cfg.GoogleSalesSheet,
		ExpensesSheet:   cfg.GoogleExpensesSheet,
		CredentialsJSON: creds,
	}, logger)
}

func serviceAccountJSON(cfg *config.Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.GoogleServiceAccountJSON) != "":
		return []byte(cfg.GoogleServiceAccountJSON), nil
	case strings.TrimSpace(cfg.GoogleServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.GoogleServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// New builds the client. Extra client options are appended after the
// credentials, which lets tests point the client at a local endpoint.
func New(ctx context.Context, opts Options, logger *slog.Logger, extra ...goption.ClientOption) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SalesSheet == "" {
		opts.SalesSheet = "Sales"
	}
	if opts.ExpensesSheet == "" {
		opts.ExpensesSheet = "Expenses"
	}

	clientOpts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	if len(opts.CredentialsJSON) > 0 {
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(opts.CredentialsJSON))
	}
	clientOpts = append(clientOpts, extra...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger = logger.With(log.FieldComponent, log.ComponentSheets)
	logger.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", opts.SpreadsheetID,
		"sales_sheet", opts.SalesSheet,
		"expenses_sheet", opts.ExpensesSheet)

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		salesSheet:    opts.SalesSheet,
		expensesSheet: opts.ExpensesSheet,
		logger:        logger,
	}, nil
}

func (c *Client) sheetFor(kind core.Kind) (string, error) {
	switch kind {
	case core.KindSale:
		return c.salesSheet, nil
	case core.KindExpense:
		return c.expensesSheet, nil
	}
	return "", core.ErrInvalidKind
}

// AppendRecord appends row after the last non-empty row of the kind's sheet
// and returns the updated A1 range.
func (c *Client) AppendRecord(ctx context.Context, kind core.Kind, row []any) (string, error) {
	if c == nil || c.svc == nil {
		return "", ErrNotInitialized
	}
	sheet, err := c.sheetFor(kind)
	if err != nil {
		return "", err
	}
	if len(row) == 0 {
		return "", errors.New("empty row")
	}

	rng := fmt.Sprintf("%s!A:%s", sheet, columnName(len(row)))
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp != nil && resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Appended row", log.FieldSheet, sheet, "range", ref)
	return ref, nil
}

// columnName converts a 1-based column index into its A1 letters.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// EnsureHeaders writes the column header row of every sheet whose first row
// is empty. It returns the sheets it initialized.
func (c *Client) EnsureHeaders(ctx context.Context) ([]string, error) {
	if c == nil || c.svc == nil {
		return nil, ErrNotInitialized
	}
	var initialized []string
	for _, kind := range []core.Kind{core.KindSale, core.KindExpense} {
		sheet, _ := c.sheetFor(kind)
		header := ports.HeaderFor(kind)

		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!1:1").Context(ctx).Do()
		if err != nil {
			return initialized, fmt.Errorf("read header of sheet %s: %w", sheet, err)
		}
		if resp != nil && len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
			continue
		}

		rng := fmt.Sprintf("%s!A1:%s1", sheet, columnName(len(header)))
		vr := &gsheet.ValueRange{Values: [][]any{header}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").
			Context(ctx).Do(); err != nil {
			return initialized, fmt.Errorf("write header of sheet %s: %w", sheet, err)
		}
		c.logger.InfoContext(ctx, "Wrote sheet header", log.FieldSheet, sheet)
		initialized = append(initialized, sheet)
	}
	return initialized, nil
}
