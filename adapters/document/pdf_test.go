package document

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabconv/domain/table"
)

// word places s at (x, y) as a single run of width 5pt per rune
func word(x, y float64, s string) pdf.Text {
	return pdf.Text{X: x, Y: y, W: float64(len([]rune(s))) * 5, S: s, FontSize: 10}
}

func TestTablesFromTexts_Grid(t *testing.T) {
	texts := []pdf.Text{
		word(50, 700, "Informe"),
		word(50, 680, "codigo"), word(150, 680, "cantidad"), word(250, 680, "precio"),
		word(50, 665, "A1"), word(150, 665, "10"), word(250, 665, "1,50"),
		word(50, 650, "B2"), word(150, 650, "25"), word(250, 650, "3,00"),
		word(50, 600, "Pie de pagina"),
	}

	tables := tablesFromTexts(texts, 3, 12)
	require.Len(t, tables, 1)
	assert.Equal(t, table.RawTable{
		{"codigo", "cantidad", "precio"},
		{"A1", "10", "1,50"},
		{"B2", "25", "3,00"},
	}, tables[0])
}

func TestTablesFromTexts_MissingCellKeepsColumn(t *testing.T) {
	texts := []pdf.Text{
		word(50, 680, "a"), word(150, 680, "b"), word(250, 680, "c"),
		word(50, 665, "1"), word(250, 665, "3"),
	}

	tables := tablesFromTexts(texts, 3, 12)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"1", "", "3"}, tables[0][1])
}

func TestTablesFromTexts_MergesCharactersIntoWords(t *testing.T) {
	var texts []pdf.Text
	for i, r := range "Total" {
		texts = append(texts, pdf.Text{X: 50 + float64(i)*5, Y: 680, W: 5, S: string(r), FontSize: 10})
	}
	texts = append(texts, word(150, 680, "neto"))
	texts = append(texts, word(50, 665, "10"), word(150, 665, "20"))

	tables := tablesFromTexts(texts, 3, 12)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"Total", "neto"}, tables[0][0])
}

func TestTablesFromTexts_SplitsBlocksOnSingleCellLines(t *testing.T) {
	texts := []pdf.Text{
		word(50, 700, "a"), word(150, 700, "b"),
		word(50, 690, "1"), word(150, 690, "2"),
		word(50, 660, "Seccion dos"),
		word(50, 640, "c"), word(150, 640, "d"),
		word(50, 630, "3"), word(150, 630, "4"),
	}

	tables := tablesFromTexts(texts, 3, 12)
	require.Len(t, tables, 2)
	assert.Equal(t, []string{"c", "d"}, tables[1][0])
}

func TestTablesFromTexts_RejectsSingleRowBlocks(t *testing.T) {
	texts := []pdf.Text{
		word(50, 700, "solo"), word(150, 700, "una fila"),
		word(50, 600, "texto corrido"),
	}

	assert.Empty(t, tablesFromTexts(texts, 3, 12))
}

func TestTablesFromTexts_RowToleranceJoinsNearbyBaselines(t *testing.T) {
	texts := []pdf.Text{
		word(50, 700, "a"), word(150, 701.5, "b"),
		word(50, 685, "1"), word(150, 684, "2"),
	}

	tables := tablesFromTexts(texts, 3, 12)
	require.Len(t, tables, 1)
	assert.Equal(t, table.RawTable{{"a", "b"}, {"1", "2"}}, tables[0])
}

func TestTablesFromTexts_IgnoresBlankRuns(t *testing.T) {
	texts := []pdf.Text{
		word(50, 700, "a"), word(100, 700, "   "), word(150, 700, "b"),
		word(50, 690, "1"), word(150, 690, "2"),
	}

	tables := tablesFromTexts(texts, 3, 12)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"a", "b"}, tables[0][0])
}
