package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/kopeckbot/kopeck/internal/common"
	"github.com/kopeckbot/kopeck/internal/model"
	"github.com/kopeckbot/kopeck/internal/service"
)

// headerRow is the fixed ledger schema, one column per Transaction field.
var headerRow = []any{"Дата", "Тип операции", "Категория", "Описание/Получатель", "Сумма", "Комментарий"}

// Writer implements the Ledger interface against Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	history *history
	config  Config
	sheetID int64
	gotID   bool
	mu      sync.Mutex
}

// NewWriter creates a new Google Sheets ledger writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: svc,
		logger:  logger,
		history: newHistory(config.HistorySize),
	}, nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// Append writes one row for the transaction and records its receipt.
// Appends are never retried: a retried append that actually landed
// would write a duplicate row.
func (w *Writer) Append(ctx context.Context, tx model.Transaction, messageKey string) (model.Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	vr := &sheets.ValueRange{
		Values: [][]any{tx.Row()},
	}

	resp, err := w.service.Spreadsheets.Values.
		Append(w.config.SpreadsheetID, w.config.SheetName, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return model.Receipt{}, fmt.Errorf("%w: %v", common.ErrLedgerWrite, err)
	}

	row, err := parseRowReference(resp.Updates.UpdatedRange)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("%w: %v", common.ErrLedgerWrite, err)
	}

	receipt := model.Receipt{
		Row:        row,
		MessageKey: messageKey,
		Summary:    fmt.Sprintf("%s: %s (%s)", tx.Description, tx.Amount.String(), tx.Category),
	}
	w.history.push(receipt)

	w.logger.Info("ledger row appended",
		"row", row,
		"type", tx.Type,
		"category", tx.Category,
		"amount", tx.Amount.String())

	return receipt, nil
}

// Undo deletes the most recently appended row and returns its receipt.
func (w *Writer) Undo(ctx context.Context) (model.Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	receipt, ok := w.history.pop()
	if !ok {
		return model.Receipt{}, common.ErrNothingToUndo
	}

	sheetID, err := w.resolveSheetID(ctx)
	if err != nil {
		// Put the receipt back so the user can retry the undo.
		w.history.push(receipt)
		return model.Receipt{}, fmt.Errorf("%w: %v", common.ErrLedgerWrite, err)
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: receipt.Row - 1,
					EndIndex:   receipt.Row,
				},
			},
		}},
	}

	if _, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		w.history.push(receipt)
		return model.Receipt{}, fmt.Errorf("%w: %v", common.ErrLedgerWrite, err)
	}

	w.history.shiftAfter(receipt.Row)

	w.logger.Info("ledger row removed", "row", receipt.Row)

	return receipt, nil
}

// History returns a copy of the current receipt stack, oldest first.
func (w *Writer) History() []model.Receipt {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history.snapshot()
}

// Restore replaces the receipt stack, used when reloading persisted
// state at startup.
func (w *Writer) Restore(receipts []model.Receipt) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.history.restore(receipts)
}

// EnsureHeaders writes the header row if the sheet is empty. Reads and
// the header write are idempotent, so retries are safe here.
func (w *Writer) EnsureHeaders(ctx context.Context) error {
	retryOpts := service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
	}

	return common.WithRetry(ctx, func() error {
		headerRange := fmt.Sprintf("%s!A1:F1", w.config.SheetName)

		resp, err := w.service.Spreadsheets.Values.
			Get(w.config.SpreadsheetID, headerRange).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to read header row: %w", err)
		}

		if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
			return nil
		}

		vr := &sheets.ValueRange{Values: [][]any{headerRow}}
		_, err = w.service.Spreadsheets.Values.
			Update(w.config.SpreadsheetID, headerRange, vr).
			ValueInputOption("RAW").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to write header row: %w", err)
		}

		w.logger.Info("ledger headers created", "sheet", w.config.SheetName)
		return nil
	}, retryOpts)
}

// resolveSheetID looks up the numeric sheet id for the configured tab.
// Cached after the first call; delete-row requests need it.
func (w *Writer) resolveSheetID(ctx context.Context) (int64, error) {
	if w.gotID {
		return w.sheetID, nil
	}

	spreadsheet, err := w.service.Spreadsheets.
		Get(w.config.SpreadsheetID).
		Fields("sheets.properties").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to look up sheet id: %w", err)
	}

	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil && s.Properties.Title == w.config.SheetName {
			w.sheetID = s.Properties.SheetId
			w.gotID = true
			return w.sheetID, nil
		}
	}

	return 0, fmt.Errorf("sheet %q not found in spreadsheet", w.config.SheetName)
}

// rowRefPattern extracts the starting row index from an A1-notation
// range like "Sheet1!A5:F5" or "'Лист 1'!A12:F12".
var rowRefPattern = regexp.MustCompile(`![A-Z]+(\d+)`)

// parseRowReference pulls the written row index out of the append
// response's updated range.
func parseRowReference(updatedRange string) (int64, error) {
	m := rowRefPattern.FindStringSubmatch(updatedRange)
	if m == nil {
		return 0, fmt.Errorf("no row reference in updated range %q", updatedRange)
	}

	row, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad row reference in updated range %q: %w", updatedRange, err)
	}

	return row, nil
}
