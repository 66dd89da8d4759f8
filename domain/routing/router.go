// Package routing decides which spreadsheet shape a converted document is
// written as.
package routing

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"tabconv/domain/table"
	"tabconv/domain/template"
)

// SinkKind names the output shape
type SinkKind string

const (
	SinkSingleSheet SinkKind = "single_sheet"
	SinkMultiSheet  SinkKind = "multi_sheet"
	SinkTemplate    SinkKind = "template"
)

// MaxSheetNameLength is the spreadsheet limit on sheet names.
const MaxSheetNameLength = 31

// Sheet pairs a sanitized sheet name with the table written to it
type Sheet struct {
	Name  string
	Table *table.NormalizedTable
}

// Decision is the routing outcome for one document
type Decision struct {
	Kind     SinkKind
	Sheets   []Sheet
	Template *template.Profile
}

// Router is a pure decision function over normalized tables
type Router struct {
	defaultSheet string
}

// NewRouter creates a router that names single-sheet output defaultSheet
func NewRouter(defaultSheet string) *Router {
	name := SanitizeSheetName(defaultSheet)
	if name == "" {
		name = "Datos"
	}
	return &Router{defaultSheet: name}
}

// Route picks the sink for the tables of one document. match is the template
// profile recognized from the first raw header row, or nil.
func (r *Router) Route(tables []*table.NormalizedTable, match *template.Profile) Decision {
	switch {
	case len(tables) == 0:
		return Decision{
			Kind:   SinkSingleSheet,
			Sheets: []Sheet{{Name: r.defaultSheet, Table: table.NewEmpty()}},
		}
	case len(tables) == 1 && match != nil:
		name := SanitizeSheetName(match.Sheet)
		if name == "" {
			name = r.defaultSheet
		}
		return Decision{
			Kind:     SinkTemplate,
			Sheets:   []Sheet{{Name: name, Table: tables[0]}},
			Template: match,
		}
	case len(tables) == 1:
		return Decision{
			Kind:   SinkSingleSheet,
			Sheets: []Sheet{{Name: r.defaultSheet, Table: tables[0]}},
		}
	}

	sheets := make([]Sheet, len(tables))
	for i, t := range tables {
		sheets[i] = Sheet{Name: SheetLabel(i), Table: t}
	}
	return Decision{Kind: SinkMultiSheet, Sheets: sheets}
}

// SheetLabel returns the positional label of the i-th (0-based) table
func SheetLabel(i int) string {
	return SanitizeSheetName(fmt.Sprintf("tabla_%d", i+1))
}

// SanitizeSheetName drops control characters and the characters spreadsheets
// reject in sheet names, then truncates to MaxSheetNameLength runes.
func SanitizeSheetName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`[]:*?/\`, r) {
			return -1
		}
		return r
	}, name)
	cleaned = strings.Trim(strings.TrimSpace(cleaned), "'")
	if utf8.RuneCountInString(cleaned) > MaxSheetNameLength {
		cleaned = string([]rune(cleaned)[:MaxSheetNameLength])
	}
	return cleaned
}
