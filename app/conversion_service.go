package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/sync/semaphore"

	"tabconv/domain/routing"
	"tabconv/domain/table"
	"tabconv/domain/template"
	"tabconv/internal/errors"
	"tabconv/internal/logger"
	"tabconv/internal/summary"
	"tabconv/ports"
)

const (
	outputSuffix   = "_convertido"
	fallbackStem   = "documento"
	noTablesHeader = "mensaje"
	noTablesText   = "No se encontraron tablas"
)

// NoTablesTable is the one-cell table written when a document has no tables
func NoTablesTable() table.RawTable {
	return table.RawTable{{noTablesHeader}, {noTablesText}}
}

// ServiceOptions holds the conversion settings not owned by a collaborator
type ServiceOptions struct {
	SanitizeFilenames bool
	Workers           int
}

// ConversionService drives documents through read, normalize, route and write
type ConversionService struct {
	reader     ports.DocumentReader
	normalizer ports.TableNormalizer
	sink       ports.SpreadsheetSink
	router     *routing.Router
	profiles   []template.Profile
	opts       ServiceOptions
	log        logger.Logger
}

// ConversionResult describes one converted document
type ConversionResult struct {
	Input    string           `json:"input"`
	Output   string           `json:"output"`
	Sink     routing.SinkKind `json:"sink"`
	Template string           `json:"template,omitempty"`
	Sheets   []string         `json:"sheets"`
	Tables   int              `json:"tables"`
	Duration time.Duration    `json:"duration"`
}

// BatchFailure is a document that could not be converted
type BatchFailure struct {
	File   string `json:"file"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// BatchReport summarizes a directory conversion
type BatchReport struct {
	ID        string             `json:"id"`
	InputDir  string             `json:"input_dir"`
	OutputDir string             `json:"output_dir"`
	Converted []ConversionResult `json:"converted"`
	Failures  []BatchFailure     `json:"failures"`
	Skipped   []string           `json:"skipped,omitempty"`
	Duration  time.Duration      `json:"duration"`
}

// PreviewTable is a normalized table with its column summaries
type PreviewTable struct {
	Name    string                  `json:"name"`
	Table   *table.NormalizedTable  `json:"table"`
	Columns []summary.ColumnSummary `json:"columns"`
}

// PreviewResult is what a conversion would write, without writing it
type PreviewResult struct {
	Input    string           `json:"input"`
	Sink     routing.SinkKind `json:"sink"`
	Template string           `json:"template,omitempty"`
	Tables   []PreviewTable   `json:"tables"`
}

// NewConversionService creates a conversion service
func NewConversionService(
	reader ports.DocumentReader,
	normalizer ports.TableNormalizer,
	sink ports.SpreadsheetSink,
	router *routing.Router,
	profiles []template.Profile,
	opts ServiceOptions,
	log logger.Logger,
) *ConversionService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &ConversionService{
		reader:     reader,
		normalizer: normalizer,
		sink:       sink,
		router:     router,
		profiles:   profiles,
		opts:       opts,
		log:        log.With("component", "conversion"),
	}
}

// Convert converts one document. An empty output picks
// "<stem>_convertido.xlsx" in the sink's output directory.
func (s *ConversionService) Convert(ctx context.Context, input, output string) (*ConversionResult, error) {
	start := time.Now()

	decision, tables, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	if output == "" {
		output = s.DefaultOutputName(input)
	}

	var written string
	switch decision.Kind {
	case routing.SinkTemplate:
		written, err = s.sink.PopulateTemplate(decision.Sheets[0].Table, decision.Template, output)
	case routing.SinkMultiSheet:
		written, err = s.sink.WriteSheets(decision.Sheets, output)
	default:
		written, err = s.sink.WriteTable(decision.Sheets[0].Table, decision.Sheets[0].Name, output)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s: conversion failed", input)
	}

	result := &ConversionResult{
		Input:    input,
		Output:   written,
		Sink:     decision.Kind,
		Sheets:   sheetNames(decision.Sheets),
		Tables:   tables,
		Duration: time.Since(start),
	}
	if decision.Template != nil {
		result.Template = decision.Template.Name
	}

	s.log.Info("document converted",
		"input", input,
		"output", written,
		"sink", decision.Kind,
		"tables", tables,
		"elapsed_ms", result.Duration.Milliseconds())
	return result, nil
}

// Preview normalizes a document and reports where it would be routed
func (s *ConversionService) Preview(ctx context.Context, input string) (*PreviewResult, error) {
	decision, _, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{
		Input:  input,
		Sink:   decision.Kind,
		Tables: make([]PreviewTable, len(decision.Sheets)),
	}
	if decision.Template != nil {
		result.Template = decision.Template.Name
	}
	for i, sheet := range decision.Sheets {
		result.Tables[i] = PreviewTable{
			Name:    sheet.Name,
			Table:   sheet.Table,
			Columns: summary.Table(sheet.Table),
		}
	}
	return result, nil
}

// prepare reads and normalizes a document and routes the result. It also
// returns the number of raw tables found.
func (s *ConversionService) prepare(ctx context.Context, input string) (routing.Decision, int, error) {
	raws, err := s.reader.ReadTables(ctx, input)
	if err != nil {
		return routing.Decision{}, 0, err
	}
	found := len(raws)
	if found == 0 {
		s.log.Warn("no tables found", "input", input)
		raws = []table.RawTable{NoTablesTable()}
	}

	var match *template.Profile
	if len(raws) == 1 {
		match = template.MatchRaw(raws, s.profiles)
	}

	opts := s.normalizer.Defaults()
	if match != nil {
		opts.ColumnMapping = match.ColumnMapping
		s.log.Debug("template recognized", "input", input, "profile", match.Name)
	}

	tables := make([]*table.NormalizedTable, len(raws))
	for i, raw := range raws {
		tables[i] = s.normalizer.Normalize(routing.SheetLabel(i), raw, opts)
	}
	return s.router.Route(tables, match), found, nil
}

// ConvertBatch converts every supported document directly inside inputDir.
// Documents run on a bounded pool; a failed document is reported and never
// stops the others. Cancelling ctx stops new documents from starting.
func (s *ConversionService) ConvertBatch(ctx context.Context, inputDir, outputDir string) (*BatchReport, error) {
	start := time.Now()

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(inputDir)
		}
		return nil, errors.Wrapf(err, "%s: cannot list directory", inputDir)
	}

	report := &BatchReport{
		ID:        uuid.NewString(),
		InputDir:  inputDir,
		OutputDir: outputDir,
		Converted: []ConversionResult{},
		Failures:  []BatchFailure{},
	}

	var inputs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(inputDir, entry.Name())
		if !s.reader.Supports(path) {
			report.Skipped = append(report.Skipped, entry.Name())
			continue
		}
		inputs = append(inputs, path)
	}

	log := s.log.With("batch", report.ID)
	log.Info("batch started", "dir", inputDir, "documents", len(inputs), "workers", s.opts.Workers)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(int64(s.opts.Workers))
	)
	record := func(res *ConversionResult, path string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failures = append(report.Failures, BatchFailure{
				File:   path,
				Code:   errors.GetCode(err),
				Reason: err.Error(),
			})
			return
		}
		report.Converted = append(report.Converted, *res)
	}

	outputs := s.batchOutputNames(inputs)
	for i, path := range inputs {
		output := outputs[i]
		if outputDir != "" {
			output = filepath.Join(outputDir, output)
		}
		if err := ctx.Err(); err != nil {
			record(nil, path, errors.Cancelled(path, err))
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			record(nil, path, errors.Cancelled(path, err))
			continue
		}
		wg.Add(1)
		go func(path, output string) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if rec := recover(); rec != nil {
					record(nil, path, errors.InternalError(fmt.Sprintf("%s: unexpected failure: %v", path, rec)))
				}
			}()

			res, err := s.Convert(ctx, path, output)
			if err != nil {
				log.Warn("document failed", "input", path, "code", errors.GetCode(err), "error", err)
			}
			record(res, path, err)
		}(path, output)
	}
	wg.Wait()

	sort.Slice(report.Converted, func(i, j int) bool { return report.Converted[i].Input < report.Converted[j].Input })
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].File < report.Failures[j].File })
	report.Duration = time.Since(start)

	log.Info("batch finished",
		"converted", len(report.Converted),
		"failed", len(report.Failures),
		"skipped", len(report.Skipped),
		"elapsed_ms", report.Duration.Milliseconds())
	return report, ctx.Err()
}

// DefaultOutputName returns "<stem>_convertido.xlsx" for input
func (s *ConversionService) DefaultOutputName(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if s.opts.SanitizeFilenames {
		stem = slug.Make(stem)
	}
	if stem == "" || stem == "." {
		stem = fallbackStem
	}
	return stem + outputSuffix + ".xlsx"
}

// batchOutputNames assigns every input its own workbook name. Inputs whose
// default names collide (factura.pdf and factura.docx) get a _2, _3, ...
// suffix in input order. Names are compared case-insensitively.
func (s *ConversionService) batchOutputNames(inputs []string) []string {
	names := make([]string, len(inputs))
	claimed := make(map[string]bool, len(inputs))
	for i, path := range inputs {
		name := s.DefaultOutputName(path)
		stem := strings.TrimSuffix(name, ".xlsx")
		for n := 2; claimed[strings.ToLower(name)]; n++ {
			name = stem + "_" + strconv.Itoa(n) + ".xlsx"
		}
		claimed[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func sheetNames(sheets []routing.Sheet) []string {
	names := make([]string, len(sheets))
	for i, sh := range sheets {
		names[i] = sh.Name
	}
	return names
}
