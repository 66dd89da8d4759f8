package routing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabconv/domain/table"
	"tabconv/domain/template"
)

func tables(n int) []*table.NormalizedTable {
	out := make([]*table.NormalizedTable, n)
	for i := range out {
		out[i] = &table.NormalizedTable{Columns: []table.Column{
			{Name: "a", Type: table.TypeText, Values: []table.Value{table.NewTextValue("x")}},
		}}
	}
	return out
}

func TestRoute(t *testing.T) {
	profile := template.CostSheet()

	tests := []struct {
		name     string
		tables   []*table.NormalizedTable
		match    *template.Profile
		kind     SinkKind
		sheets   []string
		template bool
	}{
		{"no tables", nil, nil, SinkSingleSheet, []string{"Datos"}, false},
		{"one table", tables(1), nil, SinkSingleSheet, []string{"Datos"}, false},
		{"one recognized table", tables(1), &profile, SinkTemplate, []string{"Ficha de costo"}, true},
		{"three tables", tables(3), nil, SinkMultiSheet, []string{"tabla_1", "tabla_2", "tabla_3"}, false},
		{"recognition ignored for many tables", tables(2), &profile, SinkMultiSheet, []string{"tabla_1", "tabla_2"}, false},
	}

	router := NewRouter("Datos")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := router.Route(tt.tables, tt.match)
			assert.Equal(t, tt.kind, d.Kind)

			var names []string
			for _, s := range d.Sheets {
				names = append(names, s.Name)
				require.NotNil(t, s.Table)
			}
			assert.Equal(t, tt.sheets, names)
			assert.Equal(t, tt.template, d.Template != nil)
		})
	}
}

func TestRoute_KeepsTableIdentity(t *testing.T) {
	in := tables(2)
	d := NewRouter("Datos").Route(in, nil)
	assert.Same(t, in[0], d.Sheets[0].Table)
	assert.Same(t, in[1], d.Sheets[1].Table)
}

func TestNewRouter_FallsBackOnBlankName(t *testing.T) {
	d := NewRouter(" [*] ").Route(tables(1), nil)
	assert.Equal(t, "Datos", d.Sheets[0].Name)
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"tabla_1", "tabla_1"},
		{"Ventas: 2024/Q1", "Ventas 2024Q1"},
		{"'citado'", "citado"},
		{"con\tcontrol\x00", "concontrol"},
		{strings.Repeat("x", 40), strings.Repeat("x", 31)},
		{strings.Repeat("ñ", 40), strings.Repeat("ñ", 31)},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeSheetName(tt.in))
		})
	}
}
