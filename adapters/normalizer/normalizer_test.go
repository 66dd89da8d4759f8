package normalizer

import (
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabconv/domain/table"
	"tabconv/internal/logger"
)

type logEntry struct {
	level string
	msg   string
}

// recordingLogger captures messages so tests can assert on diagnostics
type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (r *recordingLogger) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, logEntry{level: level, msg: msg})
}

func (r *recordingLogger) Debug(msg string, _ ...any)  { r.add("debug", msg) }
func (r *recordingLogger) Info(msg string, _ ...any)   { r.add("info", msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)   { r.add("warn", msg) }
func (r *recordingLogger) Error(msg string, _ ...any)  { r.add("error", msg) }
func (r *recordingLogger) With(_ ...any) logger.Logger { return r }

func (r *recordingLogger) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range *r.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func newTestNormalizer() (*Normalizer, *recordingLogger) {
	rec := newRecordingLogger()
	return New(table.DefaultNormalizeOptions(), rec), rec
}

func normalize(t *testing.T, raw table.RawTable) *table.NormalizedTable {
	t.Helper()
	n, _ := newTestNormalizer()
	return n.Normalize("tabla_1", raw, n.Defaults())
}

func column(t *testing.T, nt *table.NormalizedTable, name string) *table.Column {
	t.Helper()
	col, ok := nt.Column(name)
	require.Truef(t, ok, "column %q not found in %v", name, nt.ColumnNames())
	return col
}

func TestNormalizeEmptyTable(t *testing.T) {
	tests := []struct {
		name string
		raw  table.RawTable
	}{
		{name: "nil", raw: nil},
		{name: "no rows", raw: table.RawTable{}},
		{name: "zero width rows", raw: table.RawTable{{}, {}}},
		{name: "only empty cells", raw: table.RawTable{{"", ""}, {"", ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, rec := newTestNormalizer()
			got := n.Normalize("tabla_1", tt.raw, n.Defaults())

			assert.True(t, got.IsEmpty())
			assert.Equal(t, 0, got.RowCount())
			assert.Empty(t, got.ColumnNames())
			assert.Equal(t, 1, rec.count("warn"))
		})
	}
}

func TestHeaderDetectionThreshold(t *testing.T) {
	tests := []struct {
		name       string
		first      []string
		wantHeader bool
	}{
		{name: "exactly 40% numeric is data", first: []string{"1", "2", "a", "b", "c"}, wantHeader: false},
		{name: "20% numeric is header", first: []string{"1", "a", "b", "c", "d"}, wantHeader: true},
		{name: "all text is header", first: []string{"x", "y"}, wantHeader: true},
		{name: "all numeric is data", first: []string{"1,5", "-2", "+3.000"}, wantHeader: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			second := make([]string, len(tt.first))
			for i := range second {
				second[i] = "v"
			}
			got := normalize(t, table.RawTable{tt.first, second})

			if tt.wantHeader {
				assert.Equal(t, 1, got.RowCount())
				assert.NotEqual(t, GenericNames(len(tt.first)), got.ColumnNames())
			} else {
				assert.Equal(t, 2, got.RowCount())
				assert.Equal(t, GenericNames(len(tt.first)), got.ColumnNames())
			}
		})
	}
}

func TestSingleHeaderRowYieldsNoDataRows(t *testing.T) {
	got := normalize(t, table.RawTable{{"Código", "Descripción"}})

	assert.Equal(t, []string{"codigo", "descripcion"}, got.ColumnNames())
	assert.Equal(t, 0, got.RowCount())
	for _, col := range got.Columns {
		assert.Equal(t, table.TypeText, col.Type)
		assert.NotNil(t, col.Values)
	}
}

func TestSingleDataRowKeepsGenericNames(t *testing.T) {
	got := normalize(t, table.RawTable{{"1", "2", "3"}})

	assert.Equal(t, []string{"col_0", "col_1", "col_2"}, got.ColumnNames())
	assert.Equal(t, 1, got.RowCount())
}

func TestRoundTripCostTable(t *testing.T) {
	raw := table.RawTable{
		{"Código", "Descripción", "Cantidad"},
		{"001", "Tornillo", "10"},
		{"002", "Tuerca", "25"},
	}

	got := normalize(t, raw)

	assert.Equal(t, []string{"codigo", "descripcion", "cantidad"}, got.ColumnNames())

	qty := column(t, got, "cantidad")
	assert.Equal(t, table.TypeNumber, qty.Type)
	require.Len(t, qty.Values, 2)
	assert.Equal(t, 10.0, *qty.Values[0].Number)
	assert.Equal(t, 25.0, *qty.Values[1].Number)

	desc := column(t, got, "descripcion")
	assert.Equal(t, table.TypeText, desc.Type)
	assert.Equal(t, "Tornillo", desc.Values[0].String())
}

func TestMergedCellsFillWithinDataRegion(t *testing.T) {
	raw := table.RawTable{
		{"A", "B"},
		{"", "x"},
		{"y", "z"},
	}

	got := normalize(t, raw)

	a := column(t, got, "a")
	require.Len(t, a.Values, 2)
	assert.False(t, a.Values[0].IsMissing)
	assert.Equal(t, "", a.Values[0].String(), "leading gap must not take the header text")
	assert.Equal(t, "y", a.Values[1].String())

	b := column(t, got, "b")
	assert.Equal(t, "x", b.Values[0].String())
	assert.Equal(t, "z", b.Values[1].String())
}

func TestMergedCellsFillForward(t *testing.T) {
	raw := table.RawTable{
		{"Grupo", "Item"},
		{"Herrajes", "Tornillo"},
		{"", "Tuerca"},
		{"", "Arandela"},
		{"Pintura", "Esmalte"},
	}

	got := normalize(t, raw)

	grupo := column(t, got, "grupo")
	var values []string
	for _, v := range grupo.Values {
		values = append(values, v.String())
	}
	assert.Equal(t, []string{"Herrajes", "Herrajes", "Herrajes", "Pintura"}, values)
}

func TestMissingCellsWithoutMergedHandling(t *testing.T) {
	n, _ := newTestNormalizer()
	opts := n.Defaults()
	opts.HandleMergedCells = false

	got := n.Normalize("tabla_1", table.RawTable{{"Grupo", "Item"}, {"Herrajes", "a"}, {"", "b"}}, opts)

	grupo := column(t, got, "grupo")
	assert.True(t, grupo.Values[1].IsMissing)
}

func TestEmptyRowAndColumnPruning(t *testing.T) {
	raw := table.RawTable{
		{"Nombre", "", "Valor"},
		{"", "", ""},
		{"a", "", "1"},
		{"b", "", "2"},
	}

	t.Run("enabled", func(t *testing.T) {
		got := normalize(t, raw)
		assert.Equal(t, []string{"nombre", "valor"}, got.ColumnNames())
		assert.Equal(t, 2, got.RowCount())
	})

	t.Run("disabled", func(t *testing.T) {
		n, _ := newTestNormalizer()
		opts := n.Defaults()
		opts.RemoveEmptyRows = false
		opts.RemoveEmptyColumns = false
		opts.HandleMergedCells = false

		got := n.Normalize("tabla_1", raw, opts)
		assert.Equal(t, []string{"nombre", "col_1", "valor"}, got.ColumnNames())
		assert.Equal(t, 3, got.RowCount())
		assert.True(t, column(t, got, "valor").Values[0].IsMissing)
	})

	t.Run("idempotent", func(t *testing.T) {
		once := normalize(t, raw)
		again := normalize(t, table.RawTable{{"Nombre", "Valor"}, {"a", "1"}, {"b", "2"}})
		assert.Equal(t, once.ColumnNames(), again.ColumnNames())
		assert.Equal(t, once.RowCount(), again.RowCount())
	})
}

func TestRaggedRowsArePadded(t *testing.T) {
	raw := table.RawTable{
		{"Nombre", "Valor", "Nota"},
		{"a", "1"},
		{"b", "2", "ok", "extra"},
	}

	got := normalize(t, raw)

	assert.Equal(t, []string{"nombre", "valor", "nota", "col_3"}, got.ColumnNames())
	assert.Equal(t, 2, got.RowCount())
	assert.Equal(t, "extra", column(t, got, "col_3").Values[1].String())
}

func TestTypeInferenceThreshold(t *testing.T) {
	build := func(matching, other int) table.RawTable {
		raw := table.RawTable{{"Valor"}}
		for i := 0; i < matching; i++ {
			raw = append(raw, []string{strconv.Itoa(i + 1)})
		}
		for i := 0; i < other; i++ {
			raw = append(raw, []string{fmt.Sprintf("x%d", i)})
		}
		return raw
	}

	tests := []struct {
		name     string
		matching int
		other    int
		want     table.ColumnType
	}{
		{name: "exactly 60% is text", matching: 3, other: 2, want: table.TypeText},
		{name: "exactly 60% of 100 is text", matching: 60, other: 40, want: table.TypeText},
		{name: "61% is number", matching: 61, other: 39, want: table.TypeNumber},
		{name: "all numbers", matching: 5, other: 0, want: table.TypeNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(t, build(tt.matching, tt.other))
			assert.Equal(t, tt.want, column(t, got, "valor").Type)
		})
	}
}

func TestTypeInferenceSampleLimit(t *testing.T) {
	raw := table.RawTable{{"Valor"}}
	for i := 0; i < 100; i++ {
		raw = append(raw, []string{strconv.Itoa(i)})
	}
	for i := 0; i < 200; i++ {
		raw = append(raw, []string{"texto"})
	}

	got := normalize(t, raw)

	col := column(t, got, "valor")
	assert.Equal(t, table.TypeNumber, col.Type, "only the first 100 values are sampled")
	assert.True(t, col.Values[150].IsMissing)
}

func TestColumnTypesAndCoercion(t *testing.T) {
	raw := table.RawTable{
		{"Precio", "Descuento", "Fecha", "Peso"},
		{"$1200", "10%", "05/03/2024", "1,5"},
		{"€35,50", "12,5%", "31-12-2023", "2"},
		{"£7", "0%", "1.2.99", "3.25"},
	}

	got := normalize(t, raw)

	price := column(t, got, "precio")
	require.Equal(t, table.TypeCurrency, price.Type)
	assert.Equal(t, "1200", price.Values[0].Amount.String())
	assert.Equal(t, "35.5", price.Values[1].Amount.String())

	discount := column(t, got, "descuento")
	require.Equal(t, table.TypePercent, discount.Type)
	assert.InDelta(t, 0.10, *discount.Values[0].Number, 1e-9)
	assert.InDelta(t, 0.125, *discount.Values[1].Number, 1e-9)
	assert.InDelta(t, 0.0, *discount.Values[2].Number, 1e-9)

	date := column(t, got, "fecha")
	require.Equal(t, table.TypeDate, date.Type)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), *date.Values[0].Date)
	assert.Equal(t, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), *date.Values[1].Date)
	assert.Equal(t, time.Date(1999, time.February, 1, 0, 0, 0, 0, time.UTC), *date.Values[2].Date)

	weight := column(t, got, "peso")
	require.Equal(t, table.TypeNumber, weight.Type)
	assert.Equal(t, 1.5, *weight.Values[0].Number)
	assert.Equal(t, 3.25, *weight.Values[2].Number)
}

func TestCoercionNeverFails(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    table.ColumnType
		missing int
	}{
		{name: "number with text", values: []string{"10", "20", "30", "abc"}, want: table.TypeNumber, missing: 3},
		{name: "number with double separators", values: []string{"1", "2", "3", "1.234,56"}, want: table.TypeNumber, missing: 3},
		{name: "currency with garbage", values: []string{"$1", "$2", "$3", "n/a"}, want: table.TypeCurrency, missing: 3},
		{name: "percent with garbage", values: []string{"1%", "2%", "3%", "--"}, want: table.TypePercent, missing: 3},
		{name: "date with impossible day", values: []string{"01/01/2024", "02/01/2024", "03/01/2024", "45/45/2024"}, want: table.TypeDate, missing: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := table.RawTable{{"Columna"}}
			for _, v := range tt.values {
				raw = append(raw, []string{v})
			}

			var got *table.NormalizedTable
			require.NotPanics(t, func() { got = normalize(t, raw) })

			col := column(t, got, "columna")
			assert.Equal(t, tt.want, col.Type)
			for i, v := range col.Values {
				assert.Equal(t, i == tt.missing, v.IsMissing, "row %d", i)
				assert.Equal(t, tt.want, v.Type)
			}
		})
	}
}

func TestCoercionFailuresAreLoggedAtDebug(t *testing.T) {
	n, rec := newTestNormalizer()

	n.Normalize("tabla_1", table.RawTable{{"N"}, {"1"}, {"2"}, {"3"}, {"x"}}, n.Defaults())

	assert.Equal(t, 0, rec.count("warn"))
	assert.GreaterOrEqual(t, rec.count("debug"), 1)
}

func TestColumnMapping(t *testing.T) {
	n, _ := newTestNormalizer()
	opts := n.Defaults()
	opts.ColumnMapping = table.ColumnMapping{
		"col_0":   "codigo",
		"col_1":   "descripcion",
		"missing": "ignored",
	}

	got := n.Normalize("tabla_1", table.RawTable{{"1", "Tornillo", "3"}, {"2", "Tuerca", "4"}}, opts)

	assert.Equal(t, []string{"codigo", "descripcion", "col_2"}, got.ColumnNames())
}

func TestColumnMappingCollisionStaysUnique(t *testing.T) {
	n, _ := newTestNormalizer()
	opts := n.Defaults()
	opts.ColumnMapping = table.ColumnMapping{"cod": "codigo"}

	got := n.Normalize("tabla_1", table.RawTable{{"Cod", "Codigo"}, {"1", "2"}}, opts)

	assert.Equal(t, []string{"codigo", "codigo_1"}, got.ColumnNames())
}

func TestColumnsStayAligned(t *testing.T) {
	raw := table.RawTable{
		{"A", "B", "C"},
		{"1", "", "x"},
		{"", "2"},
		{"3", "4", "z", ""},
	}

	got := normalize(t, raw)

	for _, col := range got.Columns {
		assert.Len(t, col.Values, got.RowCount())
	}
}
