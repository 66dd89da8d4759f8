package normalizer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tabconv/domain/table"
)

// coerceColumn converts raw cells to values of type t. Cells that cannot be
// parsed become missing values of t; the number of such cells is returned.
func coerceColumn(t table.ColumnType, cells []string, present []bool) ([]table.Value, int) {
	values := make([]table.Value, len(cells))
	failures := 0
	for i, cell := range cells {
		if !present[i] || (cell == "" && t != table.TypeText) {
			values[i] = table.NewMissingValue(t)
			continue
		}
		v, ok := coerceValue(t, cell)
		if !ok {
			failures++
			v = table.NewMissingValue(t)
		}
		values[i] = v
	}
	return values, failures
}

func coerceValue(t table.ColumnType, cell string) (table.Value, bool) {
	switch t {
	case table.TypeNumber:
		f, ok := parseFloat(cell)
		if !ok {
			return table.Value{}, false
		}
		return table.NewNumberValue(f), true
	case table.TypeCurrency:
		amount, ok := parseAmount(cell)
		if !ok {
			return table.Value{}, false
		}
		return table.NewCurrencyValue(amount), true
	case table.TypePercent:
		f, ok := parseFloat(strings.ReplaceAll(cell, "%", ""))
		if !ok {
			return table.Value{}, false
		}
		return table.NewPercentValue(f / 100.0), true
	case table.TypeDate:
		d, ok := parseDayFirst(cell)
		if !ok {
			return table.Value{}, false
		}
		return table.NewDateValue(d), true
	default:
		return table.NewTextValue(cell), true
	}
}

// parseFloat reads a number after mapping the comma separator to the decimal
// point. "1,5" is 1.5; "1.234,5" does not parse.
func parseFloat(s string) (float64, bool) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if clean == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// parseAmount strips currency symbols and reads the rest as an exact decimal.
// Amounts beyond the float64 range do not parse.
func parseAmount(s string) (decimal.Decimal, bool) {
	clean := currencySymbols.ReplaceAllString(strings.TrimSpace(s), "")
	clean = strings.ReplaceAll(clean, ",", ".")
	if clean == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if f := d.InexactFloat64(); math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	return d, true
}

// parseDayFirst reads D/M/Y, D-M-Y, D.M.Y or D\M\Y dates, day first. When the
// day-first reading is impossible but the month-first one is valid, the latter
// is used. ISO YYYY-MM-DD is also accepted. Two-digit years map 69-99 to the
// 1900s and 00-68 to the 2000s.
func parseDayFirst(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '-' || r == '.' || r == '\\'
	})
	if len(parts) != 3 {
		return time.Time{}, false
	}
	first, err1 := strconv.Atoi(parts[0])
	second, err2 := strconv.Atoi(parts[1])
	year, err3 := parseYear(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}

	if d, ok := makeDate(year, second, first); ok {
		return d, true
	}
	return makeDate(year, first, second)
}

func parseYear(s string) (int, error) {
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch len(s) {
	case 2:
		if y >= 69 {
			return 1900 + y, nil
		}
		return 2000 + y, nil
	case 4:
		return y, nil
	}
	return 0, strconv.ErrSyntax
}

// makeDate builds a date, rejecting overflow such as 31/02
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}
