// Package summary computes per-column statistics shown alongside previews.
package summary

import (
	"github.com/montanaflynn/stats"

	"tabconv/domain/table"
)

// ColumnSummary describes one normalized column
type ColumnSummary struct {
	Name    string           `json:"name"`
	Type    table.ColumnType `json:"type"`
	Count   int              `json:"count"`
	Missing int              `json:"missing"`
	Numeric *NumericSummary  `json:"numeric,omitempty"`
}

// NumericSummary holds statistics over the non-missing values of a number,
// currency or percent column
type NumericSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Sum    float64 `json:"sum"`
}

// Table summarizes every column of t
func Table(t *table.NormalizedTable) []ColumnSummary {
	if t.IsEmpty() {
		return []ColumnSummary{}
	}
	out := make([]ColumnSummary, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = Column(col)
	}
	return out
}

// Column summarizes a single column
func Column(col table.Column) ColumnSummary {
	s := ColumnSummary{Name: col.Name, Type: col.Type, Count: len(col.Values)}

	var data stats.Float64Data
	for _, v := range col.Values {
		if v.IsMissing {
			s.Missing++
			continue
		}
		if f, ok := v.Float64(); ok {
			data = append(data, f)
		}
	}
	if len(data) == 0 {
		return s
	}

	numeric, err := describe(data)
	if err == nil {
		s.Numeric = numeric
	}
	return s
}

func describe(data stats.Float64Data) (*NumericSummary, error) {
	min, err := data.Min()
	if err != nil {
		return nil, err
	}
	max, err := data.Max()
	if err != nil {
		return nil, err
	}
	mean, err := data.Mean()
	if err != nil {
		return nil, err
	}
	median, err := data.Median()
	if err != nil {
		return nil, err
	}
	sum, err := data.Sum()
	if err != nil {
		return nil, err
	}
	return &NumericSummary{Min: min, Max: max, Mean: mean, Median: median, Sum: sum}, nil
}
