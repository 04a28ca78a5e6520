package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"sprout/internal/config"
	"sprout/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsExporter appends expenses to a Google Sheets spreadsheet using a
// service account.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ Exporter = (*SheetsExporter)(nil)

// NewSheetsExporter builds the Sheets client from config. Credentials come
// from inline JSON, a key file, or GOOGLE_APPLICATION_CREDENTIALS, in that
// order.
func NewSheetsExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (*SheetsExporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := resolveCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     cfg.GoogleSheetName,
		logger:        logger.WithComponent(log.ComponentExport),
	}, nil
}

func resolveCredentials(cfg *config.Config) ([]byte, error) {
	if json := strings.TrimSpace(cfg.GoogleServiceAccountJSON); json != "" {
		return []byte(json), nil
	}

	file := strings.TrimSpace(cfg.GoogleServiceAccountFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	credentialsJSON, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return credentialsJSON, nil
}

// Append writes the row below the last used row of the sheet and returns the
// updated range as the row reference.
func (s *SheetsExporter) Append(ctx context.Context, row Row) (string, error) {
	if s.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:D", s.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}

	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", s.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	s.logger.InfoContext(ctx, "exported expense row",
		log.FieldOperation, log.OpExport,
		"ref", ref)
	return ref, nil
}
