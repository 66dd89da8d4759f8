package document

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"tabconv/domain/table"
)

// cell is a run of merged text on one line
type cell struct {
	x, end float64
	text   string
}

func readPDF(ctx context.Context, path string, opts Options) (tables []table.RawTable, err error) {
	// the parser panics on some malformed input
	defer func() {
		if rec := recover(); rec != nil {
			tables = nil
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		tables = append(tables, tablesFromTexts(page.Content().Text, opts.RowTolerance, opts.ColumnGap)...)
	}
	return tables, nil
}

// tablesFromTexts rebuilds the tables of one page from its positioned text
// runs. Runs are grouped into lines by Y, merged into cells by X, and runs of
// consecutive multi-cell lines form a table whose columns come from clustering
// the cell start positions.
func tablesFromTexts(texts []pdf.Text, rowTolerance, columnGap float64) []table.RawTable {
	lines := groupLines(filterTexts(texts), rowTolerance)

	var tables []table.RawTable
	var block [][]cell
	flush := func() {
		if t := alignBlock(block, columnGap); len(t) > 1 && nonEmpty(t[0]) > 1 {
			tables = append(tables, t)
		}
		block = nil
	}
	for _, line := range lines {
		cells := mergeCells(line, columnGap)
		if len(cells) < 2 {
			flush()
			continue
		}
		block = append(block, cells)
	}
	flush()
	return tables
}

func filterTexts(texts []pdf.Text) []pdf.Text {
	filtered := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.S) != "" {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// groupLines buckets runs by Y and returns lines top to bottom, each sorted
// left to right.
func groupLines(texts []pdf.Text, tolerance float64) [][]pdf.Text {
	type bucket struct {
		yMin, yMax float64
		texts      []pdf.Text
	}

	var buckets []bucket
	for _, t := range texts {
		found := false
		for i := range buckets {
			if t.Y >= buckets[i].yMin-tolerance && t.Y <= buckets[i].yMax+tolerance {
				buckets[i].texts = append(buckets[i].texts, t)
				buckets[i].yMin = math.Min(buckets[i].yMin, t.Y)
				buckets[i].yMax = math.Max(buckets[i].yMax, t.Y)
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, bucket{yMin: t.Y, yMax: t.Y, texts: []pdf.Text{t}})
		}
	}

	// PDF space grows upwards
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].yMax > buckets[j].yMax
	})

	lines := make([][]pdf.Text, len(buckets))
	for i, b := range buckets {
		sort.SliceStable(b.texts, func(i, j int) bool {
			return b.texts[i].X < b.texts[j].X
		})
		lines[i] = b.texts
	}
	return lines
}

// mergeCells joins adjacent runs of a line into cells, splitting wherever the
// horizontal gap exceeds columnGap.
func mergeCells(line []pdf.Text, columnGap float64) []cell {
	var cells []cell
	var current *cell
	for _, t := range line {
		if current == nil {
			current = &cell{x: t.X, end: t.X + t.W, text: t.S}
			continue
		}
		gap := t.X - current.end
		if gap > columnGap {
			cells = append(cells, *current)
			current = &cell{x: t.X, end: t.X + t.W, text: t.S}
			continue
		}
		if gap > wordSpace(t) && !strings.HasSuffix(current.text, " ") && !strings.HasPrefix(t.S, " ") {
			current.text += " "
		}
		current.text += t.S
		current.end = math.Max(current.end, t.X+t.W)
	}
	if current != nil {
		cells = append(cells, *current)
	}

	out := cells[:0]
	for _, c := range cells {
		c.text = strings.Join(strings.Fields(c.text), " ")
		if c.text != "" {
			out = append(out, c)
		}
	}
	return out
}

func wordSpace(t pdf.Text) float64 {
	if t.FontSize > 0 {
		return t.FontSize * 0.2
	}
	return 1.0
}

// alignBlock places the cells of consecutive lines into shared columns.
// Column anchors are clusters of cell start positions no further apart
// than columnGap.
func alignBlock(block [][]cell, columnGap float64) table.RawTable {
	if len(block) == 0 {
		return nil
	}

	var starts []float64
	for _, line := range block {
		for _, c := range line {
			starts = append(starts, c.x)
		}
	}
	sort.Float64s(starts)

	var anchors []float64
	for _, x := range starts {
		if len(anchors) == 0 || x-anchors[len(anchors)-1] > columnGap {
			anchors = append(anchors, x)
		}
	}

	rows := make(table.RawTable, len(block))
	for i, line := range block {
		row := make([]string, len(anchors))
		for _, c := range line {
			col := nearestAnchor(anchors, c.x)
			if row[col] != "" {
				row[col] += " " + c.text
			} else {
				row[col] = c.text
			}
		}
		rows[i] = row
	}
	return rows
}

func nearestAnchor(anchors []float64, x float64) int {
	idx := sort.SearchFloat64s(anchors, x)
	switch {
	case idx == 0:
		return 0
	case idx == len(anchors):
		return len(anchors) - 1
	case anchors[idx] == x:
		return idx
	}
	// anchors are cluster minimums, so x belongs to the cluster starting at or before it
	return idx - 1
}

func nonEmpty(row []string) int {
	count := 0
	for _, s := range row {
		if s != "" {
			count++
		}
	}
	return count
}
