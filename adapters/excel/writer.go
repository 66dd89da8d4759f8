// Package excel writes normalized tables to .xlsx workbooks with excelize.
package excel

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"tabconv/domain/routing"
	"tabconv/domain/table"
	"tabconv/domain/template"
	"tabconv/internal/errors"
	"tabconv/internal/logger"
)

const (
	minColumnWidth = 10
	maxColumnWidth = 50
	firstSheet     = "Sheet1"
)

var illegalXMLChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

// Options controls workbook layout and cell formats
type Options struct {
	IncludeHeader   bool
	AutoAdjustWidth bool
	NumberFormat    string
	PercentFormat   string
	DateFormat      string
	// OutputDir anchors relative output paths
	OutputDir string
}

// DefaultOptions returns the formats used when none are configured
func DefaultOptions() Options {
	return Options{
		IncludeHeader:   true,
		AutoAdjustWidth: true,
		NumberFormat:    "#,##0.00",
		PercentFormat:   "0.00%",
		DateFormat:      "dd/mm/yyyy",
	}
}

// Writer is the spreadsheet sink
type Writer struct {
	opts Options
	log  logger.Logger
}

// styles holds the style IDs registered on one workbook
type styles struct {
	header  int
	number  int
	percent int
	date    int
}

// NewWriter creates a spreadsheet writer
func NewWriter(opts Options, log logger.Logger) *Writer {
	defaults := DefaultOptions()
	if opts.NumberFormat == "" {
		opts.NumberFormat = defaults.NumberFormat
	}
	if opts.PercentFormat == "" {
		opts.PercentFormat = defaults.PercentFormat
	}
	if opts.DateFormat == "" {
		opts.DateFormat = defaults.DateFormat
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Writer{opts: opts, log: log.With("component", "excel")}
}

// WriteTable writes t to a single sheet named sheetName
func (w *Writer) WriteTable(t *table.NormalizedTable, sheetName, path string) (string, error) {
	return w.WriteSheets([]routing.Sheet{{Name: sheetName, Table: t}}, path)
}

// WriteSheets writes one sheet per entry, in order
func (w *Writer) WriteSheets(sheets []routing.Sheet, path string) (string, error) {
	out := w.ResolvePath(path)
	if len(sheets) == 0 {
		sheets = []routing.Sheet{{Name: firstSheet, Table: table.NewEmpty()}}
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := w.newStyles(f)
	if err != nil {
		return "", errors.WriteFailed(out, err)
	}

	used := make(map[string]bool, len(sheets))
	for i, sheet := range sheets {
		name := uniqueSheetName(sheet.Name, used)
		if i == 0 {
			err = f.SetSheetName(firstSheet, name)
		} else {
			_, err = f.NewSheet(name)
		}
		if err != nil {
			return "", errors.WriteFailed(out, err)
		}

		startRow := 1
		if w.opts.IncludeHeader {
			if err := w.writeHeader(f, name, sheet.Table, st); err != nil {
				return "", errors.WriteFailed(out, err)
			}
			startRow = 2
		}
		if err := w.writeRows(f, name, sheet.Table, startRow, st); err != nil {
			return "", errors.WriteFailed(out, err)
		}
		if w.opts.AutoAdjustWidth {
			if err := autoWidth(f, name, sheet.Table, w.opts.IncludeHeader); err != nil {
				return "", errors.WriteFailed(out, err)
			}
		}
	}

	if err := save(f, out); err != nil {
		return "", err
	}
	w.log.Info("workbook written", "path", out, "sheets", len(sheets))
	return out, nil
}

// PopulateTemplate writes the detail rows of t into the profile layout and
// closes the block with the profile totals. The workbook at
// profile.TemplatePath is used as a base when it exists.
func (w *Writer) PopulateTemplate(t *table.NormalizedTable, profile *template.Profile, path string) (string, error) {
	out := w.ResolvePath(path)
	if profile == nil {
		return "", errors.WriteFailed(out, errors.InvalidInput("no template profile"))
	}

	f, err := openBase(profile.TemplatePath)
	if err != nil {
		return "", errors.WriteFailed(out, err)
	}
	defer f.Close()

	sheet := routing.SanitizeSheetName(profile.Sheet)
	if err := ensureSheet(f, sheet); err != nil {
		return "", errors.WriteFailed(out, err)
	}

	st, err := w.newStyles(f)
	if err != nil {
		return "", errors.WriteFailed(out, err)
	}

	n := t.RowCount()
	for field, letter := range profile.Fields {
		col, ok := t.Column(field)
		if !ok {
			continue
		}
		colNum, err := excelize.ColumnNameToNumber(letter)
		if err != nil {
			return "", errors.WriteFailed(out, err)
		}
		for i, v := range col.Values {
			cellRef, err := excelize.CoordinatesToCellName(colNum, profile.DetailStartRow+i)
			if err != nil {
				return "", errors.WriteFailed(out, err)
			}
			if err := setValue(f, sheet, cellRef, v, st); err != nil {
				return "", errors.WriteFailed(out, err)
			}
		}
	}

	for _, total := range profile.Totals {
		row := profile.TotalRow(total, n)
		if total.Label != "" && total.LabelColumn != "" {
			labelRef := total.LabelColumn + strconv.Itoa(row)
			if err := f.SetCellValue(sheet, labelRef, sanitize(total.Label)); err != nil {
				return "", errors.WriteFailed(out, err)
			}
		}
		ref := total.Column + strconv.Itoa(row)
		if err := f.SetCellFormula(sheet, ref, profile.ExpandFormula(total, n)); err != nil {
			return "", errors.WriteFailed(out, err)
		}
		if err := f.SetCellStyle(sheet, ref, ref, st.number); err != nil {
			return "", errors.WriteFailed(out, err)
		}
	}

	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if err := save(f, out); err != nil {
		return "", err
	}
	w.log.Info("template populated", "path", out, "profile", profile.Name, "rows", n)
	return out, nil
}

// ResolvePath enforces the .xlsx suffix and places bare file names in the
// output directory.
func (w *Writer) ResolvePath(path string) string {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		path += ".xlsx"
	}
	if w.opts.OutputDir != "" && filepath.Dir(path) == "." {
		path = filepath.Join(w.opts.OutputDir, path)
	}
	return filepath.Clean(path)
}

func (w *Writer) newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	if st.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return st, err
	}
	if st.number, err = f.NewStyle(&excelize.Style{CustomNumFmt: &w.opts.NumberFormat}); err != nil {
		return st, err
	}
	if st.percent, err = f.NewStyle(&excelize.Style{CustomNumFmt: &w.opts.PercentFormat}); err != nil {
		return st, err
	}
	if st.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &w.opts.DateFormat}); err != nil {
		return st, err
	}
	return st, nil
}

func (w *Writer) writeHeader(f *excelize.File, sheet string, t *table.NormalizedTable, st styles) error {
	for j, name := range t.ColumnNames() {
		ref, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, ref, sanitize(name)); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, ref, ref, st.header); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeRows(f *excelize.File, sheet string, t *table.NormalizedTable, startRow int, st styles) error {
	for j, col := range t.Columns {
		for i, v := range col.Values {
			ref, err := excelize.CoordinatesToCellName(j+1, startRow+i)
			if err != nil {
				return err
			}
			if err := setValue(f, sheet, ref, v, st); err != nil {
				return err
			}
		}
	}
	return nil
}

// setValue writes one typed value; missing values leave the cell empty
func setValue(f *excelize.File, sheet, ref string, v table.Value, st styles) error {
	raw := v.Interface()
	if raw == nil {
		return nil
	}

	var style int
	switch v.Type {
	case table.TypeNumber, table.TypeCurrency:
		style = st.number
	case table.TypePercent:
		style = st.percent
	case table.TypeDate:
		style = st.date
	case table.TypeText:
		raw = sanitize(raw.(string))
	}

	if err := f.SetCellValue(sheet, ref, raw); err != nil {
		return err
	}
	if style != 0 {
		return f.SetCellStyle(sheet, ref, ref, style)
	}
	return nil
}

func autoWidth(f *excelize.File, sheet string, t *table.NormalizedTable, withHeader bool) error {
	for j, col := range t.Columns {
		longest := 0
		if withHeader {
			longest = utf8.RuneCountInString(col.Name)
		}
		for _, v := range col.Values {
			longest = max(longest, utf8.RuneCountInString(v.String()))
		}
		width := min(maxColumnWidth, max(minColumnWidth, longest+2))

		name, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, float64(width)); err != nil {
			return err
		}
	}
	return nil
}

// openBase opens the template workbook, or a blank one when path is unset or
// missing.
func openBase(path string) (*excelize.File, error) {
	if path == "" {
		return excelize.NewFile(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return excelize.NewFile(), nil
	}
	return excelize.OpenFile(path)
}

// ensureSheet makes sheet exist, renaming the default sheet of a blank workbook
func ensureSheet(f *excelize.File, sheet string) error {
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		return nil
	}
	list := f.GetSheetList()
	if len(list) == 1 && list[0] == firstSheet {
		return f.SetSheetName(firstSheet, sheet)
	}
	_, err := f.NewSheet(sheet)
	return err
}

func save(f *excelize.File, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return errors.WriteFailed(out, err)
	}
	if err := f.SaveAs(out); err != nil {
		return errors.WriteFailed(out, err)
	}
	return nil
}

func uniqueSheetName(name string, used map[string]bool) string {
	base := routing.SanitizeSheetName(name)
	if base == "" {
		base = firstSheet
	}
	candidate := base
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := "_" + strconv.Itoa(n)
		trimmed := []rune(base)
		if len(trimmed)+len(suffix) > routing.MaxSheetNameLength {
			trimmed = trimmed[:routing.MaxSheetNameLength-len(suffix)]
		}
		candidate = string(trimmed) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func sanitize(s string) string {
	return illegalXMLChars.ReplaceAllString(s, "")
}

