package table

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// RawTable is a grid of cell strings as extracted from a source document.
// Rows may have differing lengths.
type RawTable [][]string

// Width returns the length of the longest row
func (r RawTable) Width() int {
	width := 0
	for _, row := range r {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// IsEmpty reports whether the table has no rows or no cells at all
func (r RawTable) IsEmpty() bool {
	return len(r) == 0 || r.Width() == 0
}

// Padded returns a rectangular copy of the table together with a mask that is
// true for cells holding a non-empty value. Cells absent from short rows are
// padded with "" and reported as missing.
func (r RawTable) Padded() ([][]string, [][]bool) {
	width := r.Width()
	cells := make([][]string, len(r))
	present := make([][]bool, len(r))
	for i, row := range r {
		cells[i] = make([]string, width)
		present[i] = make([]bool, width)
		for j := range width {
			if j < len(row) {
				cells[i][j] = row[j]
				present[i][j] = row[j] != ""
			}
		}
	}
	return cells, present
}

// ColumnType is the semantic type decided uniformly for a column
type ColumnType string

const (
	TypeNumber   ColumnType = "number"
	TypeCurrency ColumnType = "currency"
	TypePercent  ColumnType = "percent"
	TypeDate     ColumnType = "date"
	TypeText     ColumnType = "text"
)

// InferenceOrder is the fixed priority in which typed patterns are tested.
var InferenceOrder = []ColumnType{TypeNumber, TypeCurrency, TypePercent, TypeDate}

// Value is a typed cell of a normalized column
type Value struct {
	Type      ColumnType       `json:"type"`
	Text      *string          `json:"text,omitempty"`
	Number    *float64         `json:"number,omitempty"` // also holds percent fractions
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Date      *time.Time       `json:"date,omitempty"`
	IsMissing bool             `json:"is_missing"`
}

// NewTextValue creates a text value. Empty strings are kept as text.
func NewTextValue(s string) Value {
	return Value{Type: TypeText, Text: &s}
}

// NewNumberValue creates a numeric value
func NewNumberValue(n float64) Value {
	return Value{Type: TypeNumber, Number: &n}
}

// NewPercentValue creates a percentage stored as a fraction (12% -> 0.12)
func NewPercentValue(fraction float64) Value {
	return Value{Type: TypePercent, Number: &fraction}
}

// NewCurrencyValue creates a currency amount
func NewCurrencyValue(amount decimal.Decimal) Value {
	return Value{Type: TypeCurrency, Amount: &amount}
}

// NewDateValue creates a calendar date value
func NewDateValue(t time.Time) Value {
	return Value{Type: TypeDate, Date: &t}
}

// NewMissingValue creates a missing value for a column of the given type
func NewMissingValue(t ColumnType) Value {
	return Value{Type: t, IsMissing: true}
}

// String returns the display representation of the value
func (v Value) String() string {
	if v.IsMissing {
		return ""
	}
	switch v.Type {
	case TypeText:
		if v.Text != nil {
			return *v.Text
		}
	case TypeNumber:
		if v.Number != nil {
			return fmt.Sprintf("%g", *v.Number)
		}
	case TypePercent:
		if v.Number != nil {
			return fmt.Sprintf("%g%%", *v.Number*100)
		}
	case TypeCurrency:
		if v.Amount != nil {
			return v.Amount.StringFixed(2)
		}
	case TypeDate:
		if v.Date != nil {
			return v.Date.Format("2006-01-02")
		}
	}
	return ""
}

// Float64 returns the numeric reading of number, percent and currency values
func (v Value) Float64() (float64, bool) {
	if v.IsMissing {
		return 0, false
	}
	switch {
	case v.Number != nil:
		return *v.Number, true
	case v.Amount != nil:
		return v.Amount.InexactFloat64(), true
	}
	return 0, false
}

// Interface returns the value as a plain Go value suitable for a spreadsheet
// cell, or nil when missing. Amounts outside the float64 range are returned
// as their exact decimal text.
func (v Value) Interface() interface{} {
	if v.IsMissing {
		return nil
	}
	switch v.Type {
	case TypeText:
		if v.Text != nil {
			return *v.Text
		}
	case TypeNumber, TypePercent:
		if v.Number != nil {
			return *v.Number
		}
	case TypeCurrency:
		if v.Amount != nil {
			if f := v.Amount.InexactFloat64(); !math.IsInf(f, 0) {
				return f
			}
			return v.Amount.String()
		}
	case TypeDate:
		if v.Date != nil {
			return *v.Date
		}
	}
	return nil
}

// Column is a named, uniformly typed sequence of values
type Column struct {
	Name   string     `json:"name"`
	Type   ColumnType `json:"type"`
	Values []Value    `json:"values"`
}

// NormalizedTable is a typed, labeled table. All columns have the same length.
type NormalizedTable struct {
	Columns []Column `json:"columns"`
}

// ColumnMapping renames generic or cleaned column names to semantic names
type ColumnMapping map[string]string

// NewEmpty returns a table with no columns and no rows
func NewEmpty() *NormalizedTable {
	return &NormalizedTable{Columns: []Column{}}
}

// IsEmpty reports whether the table has no columns
func (t *NormalizedTable) IsEmpty() bool {
	return t == nil || len(t.Columns) == 0
}

// RowCount returns the number of data rows
func (t *NormalizedTable) RowCount() int {
	if t.IsEmpty() {
		return 0
	}
	return len(t.Columns[0].Values)
}

// ColumnNames returns column names in positional order
func (t *NormalizedTable) ColumnNames() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Column looks up a column by name
func (t *NormalizedTable) Column(name string) (*Column, bool) {
	if t == nil {
		return nil, false
	}
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Row returns the values of one row in column order
func (t *NormalizedTable) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j, col := range t.Columns {
		row[j] = col.Values[i]
	}
	return row
}

// NormalizeOptions configures one normalization run
type NormalizeOptions struct {
	RemoveEmptyRows    bool          `json:"remove_empty_rows"`
	RemoveEmptyColumns bool          `json:"remove_empty_columns"`
	HandleMergedCells  bool          `json:"handle_merged_cells"`
	ColumnMapping      ColumnMapping `json:"column_mapping,omitempty"`
	HeaderThreshold    float64       `json:"header_threshold"` // header iff numeric share < threshold
	TypeThreshold      float64       `json:"type_threshold"`   // type iff match share > threshold
	SampleSize         int           `json:"sample_size"`
}

// Default normalization thresholds
const (
	DefaultHeaderThreshold = 0.4
	DefaultTypeThreshold   = 0.6
	DefaultSampleSize      = 100
)

// DefaultNormalizeOptions enables every cleaning step with the standard thresholds
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		RemoveEmptyRows:    true,
		RemoveEmptyColumns: true,
		HandleMergedCells:  true,
		HeaderThreshold:    DefaultHeaderThreshold,
		TypeThreshold:      DefaultTypeThreshold,
		SampleSize:         DefaultSampleSize,
	}
}

// WithDefaults fills zero thresholds and sample size with the defaults
func (o NormalizeOptions) WithDefaults() NormalizeOptions {
	if o.HeaderThreshold <= 0 {
		o.HeaderThreshold = DefaultHeaderThreshold
	}
	if o.TypeThreshold <= 0 {
		o.TypeThreshold = DefaultTypeThreshold
	}
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	return o
}
