// Package document extracts raw tables from PDF and Word (.docx) files.
package document

import (
	"context"
	"os"
	"time"

	"tabconv/domain/table"
	"tabconv/internal/errors"
	"tabconv/internal/logger"
)

// Options tunes input validation and PDF layout grouping
type Options struct {
	MaxFileSizeMB int
	// RowTolerance is the vertical distance, in points, within which text
	// runs belong to the same line.
	RowTolerance float64
	// ColumnGap is the horizontal gap, in points, that separates two cells.
	ColumnGap float64
}

// DefaultOptions returns the limits used when none are configured
func DefaultOptions() Options {
	return Options{
		MaxFileSizeMB: 50,
		RowTolerance:  3.0,
		ColumnGap:     12.0,
	}
}

// Reader validates source documents and dispatches to the format extractor
type Reader struct {
	opts Options
	log  logger.Logger
}

// NewReader creates a document reader
func NewReader(opts Options, log logger.Logger) *Reader {
	defaults := DefaultOptions()
	if opts.MaxFileSizeMB <= 0 {
		opts.MaxFileSizeMB = defaults.MaxFileSizeMB
	}
	if opts.RowTolerance <= 0 {
		opts.RowTolerance = defaults.RowTolerance
	}
	if opts.ColumnGap <= 0 {
		opts.ColumnGap = defaults.ColumnGap
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Reader{opts: opts, log: log.With("component", "reader")}
}

// Supports reports whether path has a supported extension
func (r *Reader) Supports(path string) bool {
	format, _ := formatFromExt(path)
	return format != ""
}

// ReadTables validates path and returns every table found in it, in document
// order. A document without tables yields an empty slice and no error.
func (r *Reader) ReadTables(ctx context.Context, path string) ([]table.RawTable, error) {
	format, err := r.validate(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var tables []table.RawTable
	switch format {
	case FormatPDF:
		tables, err = readPDF(ctx, path, r.opts)
	case FormatDOCX:
		tables, err = readDOCX(ctx, path, int64(r.opts.MaxFileSizeMB)<<20)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ExtractionFailed(path, err)
	}

	r.log.Info("tables extracted",
		"file", path,
		"format", format,
		"tables", len(tables),
		"elapsed_ms", time.Since(start).Milliseconds())
	return tables, nil
}

func (r *Reader) validate(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NotFound(path)
		}
		return "", errors.ExtractionFailed(path, err)
	}
	if info.IsDir() {
		return "", errors.UnsupportedFormat(path, "path is a directory")
	}

	format, reason := formatFromExt(path)
	if format == "" {
		return "", errors.UnsupportedFormat(path, reason)
	}

	limit := int64(r.opts.MaxFileSizeMB) << 20
	if info.Size() > limit {
		return "", errors.FileTooLarge(path, float64(info.Size())/(1<<20), r.opts.MaxFileSizeMB)
	}

	ok, detected, err := sniff(path, format)
	if err != nil {
		return "", errors.ExtractionFailed(path, err)
	}
	if !ok {
		return "", errors.UnsupportedFormat(path, "content is "+detected+", not "+string(format))
	}
	return format, nil
}
