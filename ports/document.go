package ports

import (
	"context"

	"tabconv/domain/table"
)

// DocumentReader extracts the raw tables of a source document.
// Validation failures (missing file, unsupported format, oversized input) are
// reported as coded errors before any extraction happens.
type DocumentReader interface {
	ReadTables(ctx context.Context, path string) ([]table.RawTable, error)
	Supports(path string) bool
}
