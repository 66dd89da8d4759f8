// Package normalizer turns raw extracted grids into typed, labeled tables:
// header detection and cleaning, empty row/column pruning, merged-cell
// fill-forward, per-column type inference and coercion, column renaming.
package normalizer

import (
	"tabconv/domain/table"
	"tabconv/internal/logger"
)

// Normalizer applies the cleaning pipeline to raw tables. It holds no state
// between runs and is safe for concurrent use.
type Normalizer struct {
	defaults table.NormalizeOptions
	log      logger.Logger
}

// New creates a normalizer whose Defaults are opts
func New(opts table.NormalizeOptions, log logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Discard()
	}
	return &Normalizer{
		defaults: opts.WithDefaults(),
		log:      log.With("component", "normalizer"),
	}
}

// Defaults returns the configured options, for callers that only need to
// add a column mapping.
func (n *Normalizer) Defaults() table.NormalizeOptions {
	return n.defaults
}

// Normalize cleans and types one raw table. It never fails: an empty input
// yields a table with no columns and a warning, unparseable cells become
// missing values.
func (n *Normalizer) Normalize(name string, raw table.RawTable, opts table.NormalizeOptions) *table.NormalizedTable {
	opts = opts.WithDefaults()
	log := n.log.With("table", name)

	if raw.IsEmpty() {
		log.Warn("table is empty")
		return table.NewEmpty()
	}

	cells, present := raw.Padded()
	if opts.RemoveEmptyRows {
		cells, present = dropEmptyRows(cells, present)
	}
	if opts.RemoveEmptyColumns {
		cells, present = dropEmptyColumns(cells, present)
	}
	if len(cells) == 0 || len(cells[0]) == 0 {
		log.Warn("table is empty after pruning")
		return table.NewEmpty()
	}

	width := len(cells[0])
	var headers []string
	hasHeader := isHeaderRow(cells[0], present[0], opts.HeaderThreshold)
	if hasHeader {
		headers = CleanHeaders(cells[0], present[0])
		cells, present = cells[1:], present[1:]
	} else {
		headers = GenericNames(width)
	}

	if opts.HandleMergedCells {
		fillForward(cells, present)
	}

	columns := make([]table.Column, width)
	for j, colName := range headers {
		colCells, colPresent := columnAt(cells, present, j)
		analysis := analyzeSample(sampleColumn(colCells, colPresent, opts.SampleSize), opts.TypeThreshold)
		values, failures := coerceColumn(analysis.RecommendedType, colCells, colPresent)
		if failures > 0 {
			log.Debug("unparseable cells set to missing",
				"column", colName, "type", analysis.RecommendedType, "count", failures)
		}
		columns[j] = table.Column{
			Name:   colName,
			Type:   analysis.RecommendedType,
			Values: values,
		}
	}

	renameColumns(columns, opts.ColumnMapping)

	log.Debug("table normalized", "columns", width, "rows", len(cells), "header", hasHeader)
	return &table.NormalizedTable{Columns: columns}
}

// isHeaderRow treats a row as a header when fewer than threshold of its cells
// read as numbers.
func isHeaderRow(row []string, present []bool, threshold float64) bool {
	numbers := 0
	for i, cell := range row {
		if present[i] && isNumber(cell) {
			numbers++
		}
	}
	return float64(numbers) < float64(len(row))*threshold
}

func dropEmptyRows(cells [][]string, present [][]bool) ([][]string, [][]bool) {
	keptCells := make([][]string, 0, len(cells))
	keptPresent := make([][]bool, 0, len(present))
	for i := range cells {
		if anyTrue(present[i]) {
			keptCells = append(keptCells, cells[i])
			keptPresent = append(keptPresent, present[i])
		}
	}
	return keptCells, keptPresent
}

func dropEmptyColumns(cells [][]string, present [][]bool) ([][]string, [][]bool) {
	if len(cells) == 0 {
		return cells, present
	}
	var keep []int
	for j := range cells[0] {
		for i := range cells {
			if present[i][j] {
				keep = append(keep, j)
				break
			}
		}
	}
	if len(keep) == len(cells[0]) {
		return cells, present
	}

	outCells := make([][]string, len(cells))
	outPresent := make([][]bool, len(present))
	for i := range cells {
		outCells[i] = make([]string, len(keep))
		outPresent[i] = make([]bool, len(keep))
		for k, j := range keep {
			outCells[i][k] = cells[i][j]
			outPresent[i][k] = present[i][j]
		}
	}
	return outCells, outPresent
}

// fillForward replaces each missing data cell with the nearest non-missing
// value above it in the same column. Cells with nothing above become "".
func fillForward(cells [][]string, present [][]bool) {
	if len(cells) == 0 {
		return
	}
	for j := range cells[0] {
		last, seen := "", false
		for i := range cells {
			switch {
			case present[i][j]:
				last, seen = cells[i][j], true
			case seen:
				cells[i][j] = last
				present[i][j] = true
			default:
				cells[i][j] = ""
				present[i][j] = true
			}
		}
	}
}

func columnAt(cells [][]string, present [][]bool, j int) ([]string, []bool) {
	col := make([]string, len(cells))
	mask := make([]bool, len(cells))
	for i := range cells {
		col[i] = cells[i][j]
		mask[i] = present[i][j]
	}
	return col, mask
}

// renameColumns applies mapping in place. Mapped names that are absent are
// ignored; a rename that collides with another column is suffixed like a
// duplicate header.
func renameColumns(columns []table.Column, mapping table.ColumnMapping) {
	if len(mapping) == 0 {
		return
	}
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
		if renamed, ok := mapping[col.Name]; ok && renamed != "" {
			names[i] = renamed
		}
	}
	for i, name := range Dedupe(names) {
		columns[i].Name = name
	}
}

func anyTrue(mask []bool) bool {
	for _, v := range mask {
		if v {
			return true
		}
	}
	return false
}
