package container

import (
	"fmt"
	"os"

	"tabconv/adapters/document"
	"tabconv/adapters/excel"
	"tabconv/adapters/normalizer"
	"tabconv/app"
	"tabconv/domain/routing"
	"tabconv/domain/template"
	"tabconv/internal/config"
	"tabconv/internal/logger"
	"tabconv/internal/templates"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Log    logger.Logger

	// Adapters
	Reader     *document.Reader
	Normalizer *normalizer.Normalizer
	Writer     *excel.Writer

	// Policy
	Router   *routing.Router
	Profiles []template.Profile

	// Services
	Conversion *app.ConversionService
}

// New wires every component from cfg
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		JSON:   cfg.Logging.Format == "json",
		Output: os.Stderr,
	})

	profiles, err := templates.Load(cfg.Templates.ProfilesFile)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		Log:      log,
		Profiles: profiles,
	}

	c.Reader = document.NewReader(document.Options{
		MaxFileSizeMB: cfg.Processing.MaxFileSizeMB,
		RowTolerance:  cfg.Processing.PDFRowTolerance,
		ColumnGap:     cfg.Processing.PDFColumnGap,
	}, log)

	c.Normalizer = normalizer.New(cfg.NormalizeOptions(), log)

	c.Writer = excel.NewWriter(excel.Options{
		IncludeHeader:   cfg.Excel.IncludeHeader,
		AutoAdjustWidth: cfg.Excel.AutoAdjustWidth,
		NumberFormat:    cfg.Excel.NumberFormat,
		PercentFormat:   cfg.Excel.PercentFormat,
		DateFormat:      cfg.Excel.DateFormat,
		OutputDir:       cfg.Paths.OutputDir,
	}, log)

	c.Router = routing.NewRouter(cfg.Excel.DefaultSheetName)

	c.Conversion = app.NewConversionService(
		c.Reader,
		c.Normalizer,
		c.Writer,
		c.Router,
		c.Profiles,
		app.ServiceOptions{
			SanitizeFilenames: cfg.Security.SanitizeFilenames,
			Workers:           cfg.Batch.Workers,
		},
		log,
	)

	log.Debug("container initialized",
		"output_dir", cfg.Paths.OutputDir,
		"profiles", len(profiles),
		"workers", cfg.Batch.Workers)
	return c, nil
}
