package document

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tabconv/domain/table"
)

const documentPart = "word/document.xml"

// maxGridColumns is the widest table Word produces when a table declares no
// grid.
const maxGridColumns = 63

var errPartTooLarge = errors.New(documentPart + " expands beyond the size limit")

// WordprocessingML elements are matched by local name, the w: namespace is
// implied.
type (
	documentXML struct {
		XMLName xml.Name `xml:"document"`
		Body    bodyXML  `xml:"body"`
	}

	bodyXML struct {
		Tables []tableXML `xml:"tbl"`
	}

	tableXML struct {
		Grid gridXML  `xml:"tblGrid"`
		Rows []rowXML `xml:"tr"`
	}

	gridXML struct {
		Columns []struct{} `xml:"gridCol"`
	}

	rowXML struct {
		Cells []cellXML `xml:"tc"`
	}

	cellXML struct {
		Properties cellPropsXML   `xml:"tcPr"`
		Paragraphs []paragraphXML `xml:"p"`
	}

	cellPropsXML struct {
		GridSpan *valXML `xml:"gridSpan"`
		VMerge   *valXML `xml:"vMerge"`
	}

	valXML struct {
		Val string `xml:"val,attr"`
	}

	paragraphXML struct {
		Runs []runXML `xml:"r"`
	}

	runXML struct {
		Text []string `xml:"t"`
	}
)

// readDOCX extracts the tables of a .docx package. maxPartBytes bounds the
// decompressed size of the document part.
func readDOCX(ctx context.Context, path string, maxPartBytes int64) ([]table.RawTable, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, fmt.Errorf("docx has no %s", documentPart)
	}
	if part.UncompressedSize64 > uint64(maxPartBytes) {
		return nil, errPartTooLarge
	}

	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", documentPart, err)
	}
	defer rc.Close()

	return parseDocumentXML(ctx, &limitReader{r: rc, n: maxPartBytes})
}

// limitReader fails with errPartTooLarge once more than n bytes are read, so
// a forged size header cannot hide a larger stream.
type limitReader struct {
	r io.Reader
	n int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.n < 0 {
		return 0, errPartTooLarge
	}
	if int64(len(p)) > l.n+1 {
		p = p[:l.n+1]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	if l.n < 0 {
		return n, errPartTooLarge
	}
	return n, err
}

// parseDocumentXML returns the top-level tables of a document part. Cells
// spanning several grid columns are repeated across them and vertically
// merged continuation cells carry the text of the cell above.
func parseDocumentXML(ctx context.Context, r io.Reader) ([]table.RawTable, error) {
	var doc documentXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", documentPart, err)
	}

	var tables []table.RawTable
	for _, tbl := range doc.Body.Tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(tbl.Rows) == 0 {
			continue
		}
		tables = append(tables, expandTable(tbl))
	}
	return tables, nil
}

// expandTable flattens a table into rows no wider than its declared grid,
// or maxGridColumns when the grid is absent.
func expandTable(tbl tableXML) table.RawTable {
	width := len(tbl.Grid.Columns)
	if width == 0 || width > maxGridColumns {
		width = maxGridColumns
	}

	rows := make(table.RawTable, 0, len(tbl.Rows))
	var above []string
	for _, tr := range tbl.Rows {
		var row []string
		for _, tc := range tr.Cells {
			if len(row) >= width {
				break
			}
			text := cellText(tc)
			if tc.Properties.VMerge != nil && tc.Properties.VMerge.Val != "restart" {
				if col := len(row); col < len(above) {
					text = above[col]
				}
			}
			span := min(gridSpan(tc), width-len(row))
			for range span {
				row = append(row, text)
			}
		}
		rows = append(rows, row)
		above = row
	}
	return rows
}

func gridSpan(tc cellXML) int {
	if tc.Properties.GridSpan == nil {
		return 1
	}
	span, err := strconv.Atoi(tc.Properties.GridSpan.Val)
	if err != nil || span < 1 {
		return 1
	}
	return span
}

func cellText(tc cellXML) string {
	paragraphs := make([]string, 0, len(tc.Paragraphs))
	for _, p := range tc.Paragraphs {
		var sb strings.Builder
		for _, run := range p.Runs {
			for _, t := range run.Text {
				sb.WriteString(t)
			}
		}
		paragraphs = append(paragraphs, sb.String())
	}
	return strings.TrimSpace(strings.Join(paragraphs, "\n"))
}
