// Package preview renders the first rows of normalized tables as Markdown and
// HTML for the upload page and the CLI.
package preview

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"tabconv/domain/table"
)

// DefaultRows is how many data rows a preview shows per table
const DefaultRows = 50

// Named is a table with its display label
type Named struct {
	Name  string
	Table *table.NormalizedTable
}

// Markdown renders each table as a GitHub-style pipe table under a heading,
// truncated to maxRows data rows.
func Markdown(tables []Named, maxRows int) string {
	if maxRows <= 0 {
		maxRows = DefaultRows
	}

	var sb strings.Builder
	for i, nt := range tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "### %s\n\n", escape(nt.Name))

		if nt.Table.IsEmpty() {
			sb.WriteString("_Tabla vacía_\n")
			continue
		}

		names := nt.Table.ColumnNames()
		sb.WriteString("|")
		for _, name := range names {
			sb.WriteString(" " + escape(name) + " |")
		}
		sb.WriteString("\n|")
		for range names {
			sb.WriteString(" --- |")
		}
		sb.WriteString("\n")

		rows := min(maxRows, nt.Table.RowCount())
		for r := range rows {
			sb.WriteString("|")
			for _, v := range nt.Table.Row(r) {
				sb.WriteString(" " + escape(v.String()) + " |")
			}
			sb.WriteString("\n")
		}
		if total := nt.Table.RowCount(); total > rows {
			fmt.Fprintf(&sb, "\n_%d de %d filas_\n", rows, total)
		}
	}
	return sb.String()
}

// HTML renders the Markdown preview to an HTML fragment
func HTML(tables []Named, maxRows int) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return string(markdown.ToHTML([]byte(Markdown(tables, maxRows)), p, renderer))
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
