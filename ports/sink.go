package ports

import (
	"tabconv/domain/routing"
	"tabconv/domain/table"
	"tabconv/domain/template"
)

// SpreadsheetSink writes normalized tables to a workbook on disk.
// Each method returns the resolved output path.
type SpreadsheetSink interface {
	WriteTable(t *table.NormalizedTable, sheetName, path string) (string, error)
	WriteSheets(sheets []routing.Sheet, path string) (string, error)
	PopulateTemplate(t *table.NormalizedTable, profile *template.Profile, path string) (string, error)
}
