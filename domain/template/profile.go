// Package template describes named spreadsheet layouts that a recognized
// document shape is written into.
package template

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tabconv/domain/table"
)

// Total is a derived cell written after the last detail row
type Total struct {
	Offset      int    `yaml:"offset" json:"offset" validate:"min=1"`
	Column      string `yaml:"column" json:"column" validate:"required,alpha,uppercase"`
	Formula     string `yaml:"formula" json:"formula" validate:"required"`
	Label       string `yaml:"label,omitempty" json:"label,omitempty"`
	LabelColumn string `yaml:"label_column,omitempty" json:"label_column,omitempty" validate:"omitempty,alpha,uppercase"`
}

// Profile is a target layout for a known document shape: the keyword that
// recognizes it, where detail rows go and which formulas close the block.
type Profile struct {
	Name           string              `yaml:"name" json:"name" validate:"required"`
	Keyword        string              `yaml:"keyword" json:"keyword" validate:"required"`
	TemplatePath   string              `yaml:"template_path,omitempty" json:"template_path,omitempty"`
	Sheet          string              `yaml:"sheet" json:"sheet" validate:"required,max=31"`
	DetailStartRow int                 `yaml:"detail_start_row" json:"detail_start_row" validate:"min=1"`
	ColumnMapping  table.ColumnMapping `yaml:"column_mapping" json:"column_mapping"`
	Fields         map[string]string   `yaml:"fields" json:"fields" validate:"required,min=1,dive,keys,required,endkeys,required,alpha,uppercase"`
	Totals         []Total             `yaml:"totals,omitempty" json:"totals,omitempty" validate:"dive"`
}

// CostSheet returns the built-in "ficha de costo" profile
func CostSheet() Profile {
	return Profile{
		Name:           "ficha_costo",
		Keyword:        "ficha",
		Sheet:          "Ficha de costo",
		DetailStartRow: 12,
		ColumnMapping: table.ColumnMapping{
			"col_0":            "codigo",
			"col_1":            "descripcion",
			"col_2":            "unidad",
			"col_3":            "cantidad",
			"col_4":            "precio_unitario",
			"col_5":            "importe",
			"cod":              "codigo",
			"um":               "unidad",
			"u_m":              "unidad",
			"unidad_de_medida": "unidad",
			"precio":           "precio_unitario",
			"precio_unit":      "precio_unitario",
			"total":            "importe",
		},
		Fields: map[string]string{
			"codigo":          "A",
			"descripcion":     "B",
			"unidad":          "C",
			"cantidad":        "D",
			"precio_unitario": "E",
			"importe":         "F",
		},
		Totals: []Total{
			{Offset: 1, Column: "F", Formula: "SUM(F{first}:F{last})", Label: "Subtotal", LabelColumn: "E"},
			{Offset: 2, Column: "F", Formula: "F{total1}*0.1", Label: "Gastos indirectos (10%)", LabelColumn: "E"},
			{Offset: 3, Column: "F", Formula: "F{total1}+F{total2}", Label: "Total", LabelColumn: "E"},
		},
	}
}

// LastDetailRow returns the spreadsheet row of the last detail line for a
// table of n rows. With no rows it is the row just above the detail block.
func (p Profile) LastDetailRow(n int) int {
	return p.DetailStartRow + n - 1
}

// TotalRow returns the spreadsheet row a total is written to
func (p Profile) TotalRow(t Total, n int) int {
	return p.LastDetailRow(n) + t.Offset
}

// ExpandFormula fills the {first}, {last} and {totalN} placeholders of a
// total formula for a table of n rows.
func (p Profile) ExpandFormula(t Total, n int) string {
	pairs := []string{
		"{first}", strconv.Itoa(p.DetailStartRow),
		"{last}", strconv.Itoa(p.LastDetailRow(n)),
	}
	for i, other := range p.Totals {
		pairs = append(pairs, "{total"+strconv.Itoa(i+1)+"}", strconv.Itoa(p.TotalRow(other, n)))
	}
	return strings.NewReplacer(pairs...).Replace(t.Formula)
}

// Match returns the first profile whose keyword appears in a cell of the
// header row, or nil. Matching ignores case and accents.
func Match(header []string, profiles []Profile) *Profile {
	for i := range profiles {
		keyword := Fold(profiles[i].Keyword)
		if keyword == "" {
			continue
		}
		for _, cell := range header {
			if strings.Contains(Fold(cell), keyword) {
				return &profiles[i]
			}
		}
	}
	return nil
}

// MatchRaw inspects the first row of the first raw table
func MatchRaw(tables []table.RawTable, profiles []Profile) *Profile {
	if len(tables) == 0 || len(tables[0]) == 0 {
		return nil
	}
	return Match(tables[0][0], profiles)
}

// Fold lowercases s and strips combining marks so "FICHA de Cóstó" and
// "ficha de costo" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
