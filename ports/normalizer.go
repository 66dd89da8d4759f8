package ports

import "tabconv/domain/table"

// TableNormalizer turns a raw grid into a typed, named-column table.
// Normalize never fails: malformed input degrades to an empty table.
type TableNormalizer interface {
	Normalize(name string, raw table.RawTable, opts table.NormalizeOptions) *table.NormalizedTable
	Defaults() table.NormalizeOptions
}
