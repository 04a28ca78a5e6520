package export

import (
	"context"
	"fmt"

	"sprout/internal/config"
	"sprout/internal/log"
)

// New selects the export backend named by config. "memory" needs no
// configuration; "sheets" requires a spreadsheet ID and credentials.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (Exporter, error) {
	switch cfg.ExportBackend {
	case "sheets":
		return NewSheetsExporter(ctx, cfg, logger)
	case "memory", "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown export backend: %s", cfg.ExportBackend)
	}
}
