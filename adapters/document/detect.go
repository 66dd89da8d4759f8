package document

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is a supported source document kind
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZIP  = "application/zip"
)

// formatFromExt maps a file extension to a format. The second result is a
// reason when the extension is rejected.
func formatFromExt(path string) (Format, string) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return FormatPDF, ""
	case ".docx":
		return FormatDOCX, ""
	case ".doc":
		return "", "legacy .doc is not supported, save the document as .docx"
	case "":
		return "", "missing file extension"
	default:
		return "", "extension " + ext + " is not .pdf or .docx"
	}
}

// sniff reports whether the file content agrees with the expected format,
// along with the detected MIME type.
func sniff(path string, format Format) (bool, string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false, "", err
	}
	var accepted []string
	switch format {
	case FormatPDF:
		accepted = []string{mimePDF}
	case FormatDOCX:
		// minimal archives without the Office markers still carry word/document.xml
		accepted = []string{mimeDOCX, mimeZIP}
	}
	for m := mtype; m != nil; m = m.Parent() {
		if mimetype.EqualsAny(m.String(), accepted...) {
			return true, mtype.String(), nil
		}
	}
	return false, mtype.String(), nil
}
