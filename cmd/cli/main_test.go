package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tabconv/app"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Código</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Cantidad</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>001</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>10</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>002</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>25</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
</w:body></w:document>`

func writeDocx(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`))
	require.NoError(t, err)
	w, err = zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	t.Setenv("OUTPUT_DIR", outDir)
	t.Setenv("LOG_LEVEL", "error")

	input := filepath.Join(dir, "Pedido Enero.docx")
	writeDocx(t, input)

	stdout, err := execute(t, "convert", input, "--json")
	require.NoError(t, err)

	var res app.ConversionResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, filepath.Join(outDir, "pedido-enero_convertido.xlsx"), res.Output)

	f, err := excelize.OpenFile(res.Output)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Datos", "A1")
	require.NoError(t, err)
	assert.Equal(t, "codigo", header)
	qty, err := f.GetCellValue("Datos", "B3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "25", qty)
}

func TestBatchCommand_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("LOG_LEVEL", "error")

	writeDocx(t, filepath.Join(dir, "bueno.docx"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "malo.pdf"), []byte("not a pdf"), 0o644))

	stdout, err := execute(t, "batch", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 documents failed")
	assert.Contains(t, stdout, "1 converted, 1 failed")
	assert.Contains(t, stdout, "[UNSUPPORTED_FORMAT]")
}

func TestPreviewCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("LOG_LEVEL", "error")

	input := filepath.Join(dir, "pedido.docx")
	writeDocx(t, input)

	stdout, err := execute(t, "preview", input)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "Routing: single_sheet"))
	assert.Contains(t, stdout, "| codigo | cantidad |")
	assert.Contains(t, stdout, "| 2 | 25 |")

	_, err = os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(err))
}

func TestConvertCommand_MissingFile(t *testing.T) {
	t.Setenv("OUTPUT_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	_, err := execute(t, "convert", "/no/such/file.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestProfilesCommand(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	stdout, err := execute(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ficha_costo")
	assert.Contains(t, stdout, `keyword="ficha"`)
}
