// Package ui serves the upload page: upload a document, preview its tables,
// download the converted workbook.
package ui

import (
	"context"
	stderrors "errors"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tabconv/app"
	"tabconv/internal/errors"
	"tabconv/internal/logger"
	"tabconv/internal/preview"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Converter is the conversion surface the server drives
type Converter interface {
	Convert(ctx context.Context, input, output string) (*app.ConversionResult, error)
	Preview(ctx context.Context, input string) (*app.PreviewResult, error)
	DefaultOutputName(input string) string
}

// Config holds web server settings
type Config struct {
	Port        string
	GinMode     string
	TempDir     string
	MaxUploadMB int
	PreviewRows int
	Extensions  []string
}

// Server represents the upload web server
type Server struct {
	router    *gin.Engine
	converter Converter
	cfg       Config
	templates *template.Template
	log       logger.Logger
}

// NewServer creates a server with its routes registered
func NewServer(cfg Config, converter Converter, log logger.Logger) (*Server, error) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 50
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = preview.DefaultRows
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".pdf", ".docx"}
	}
	if log == nil {
		log = logger.Discard()
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}

	s := &Server{
		router:    gin.New(),
		converter: converter,
		cfg:       cfg,
		templates: templates,
		log:       log.With("component", "ui"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.cfg.Port,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("server shutting down")
		return srv.Shutdown(context.Background())
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/", s.handleIndex)
	s.router.POST("/convert", s.handleConvert)
	s.router.POST("/preview", s.handlePreview)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleIndex(c *gin.Context) {
	s.renderTemplate(c, "index.html", gin.H{
		"Title":       "Conversor de tablas PDF/Word a Excel",
		"MaxUploadMB": s.cfg.MaxUploadMB,
		"Accept":      strings.Join(s.cfg.Extensions, ","),
	})
}

// handleConvert converts the uploaded document and streams the workbook back
func (s *Server) handleConvert(c *gin.Context) {
	input, original, ok := s.receiveUpload(c)
	if !ok {
		return
	}
	defer os.Remove(input)

	output := filepath.Join(s.cfg.TempDir, uuid.NewString()+".xlsx")
	res, err := s.converter.Convert(c.Request.Context(), input, output)
	if err != nil {
		s.fail(c, original, input, err)
		return
	}
	defer os.Remove(res.Output)

	c.Header("Content-Type", xlsxContentType)
	c.FileAttachment(res.Output, s.converter.DefaultOutputName(original))
}

// handlePreview returns the normalized tables of the upload as an HTML
// fragment with column summaries
func (s *Server) handlePreview(c *gin.Context) {
	input, original, ok := s.receiveUpload(c)
	if !ok {
		return
	}
	defer os.Remove(input)

	res, err := s.converter.Preview(c.Request.Context(), input)
	if err != nil {
		s.fail(c, original, input, err)
		return
	}

	named := make([]preview.Named, len(res.Tables))
	columns := make(map[string]any, len(res.Tables))
	for i, t := range res.Tables {
		named[i] = preview.Named{Name: t.Name, Table: t.Table}
		columns[t.Name] = t.Columns
	}

	c.JSON(http.StatusOK, gin.H{
		"file":     original,
		"sink":     res.Sink,
		"template": res.Template,
		"html":     preview.HTML(named, s.cfg.PreviewRows),
		"columns":  columns,
	})
}

// receiveUpload validates the multipart "file" field and stores it under a
// random name in the temp directory. It writes the error response itself.
func (s *Server) receiveUpload(c *gin.Context) (path, original string, ok bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			s.fail(c, "upload", "", errors.New(errors.CodeFileTooLarge, "upload exceeds the "+strconv.Itoa(s.cfg.MaxUploadMB)+" MB limit"))
			return "", "", false
		}
		s.fail(c, "upload", "", errors.InvalidInput("a document must be sent in the \"file\" field"))
		return "", "", false
	}

	original = filepath.Base(fh.Filename)
	ext := strings.ToLower(filepath.Ext(original))
	if !s.allowed(ext) {
		s.fail(c, original, "", errors.UnsupportedFormat(original, "only "+strings.Join(s.cfg.Extensions, ", ")+" documents are accepted"))
		return "", "", false
	}
	if fh.Size > s.maxUploadBytes() {
		s.fail(c, original, "", errors.FileTooLarge(original, float64(fh.Size)/(1<<20), s.cfg.MaxUploadMB))
		return "", "", false
	}

	path = filepath.Join(s.cfg.TempDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		s.fail(c, original, "", errors.Wrap(err, "failed to store upload"))
		return "", "", false
	}
	return path, original, true
}

// fail writes a JSON error. Messages name the uploaded file, never the
// temporary input path.
func (s *Server) fail(c *gin.Context, original, input string, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = original + ": conversion failed"
	}
	if input != "" {
		message = strings.ReplaceAll(message, input, original)
	}

	s.log.Warn("request failed", "file", original, "code", code, "error", err)
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

func (s *Server) allowed(ext string) bool {
	for _, e := range s.cfg.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (s *Server) maxUploadBytes() int64 {
	return int64(s.cfg.MaxUploadMB) << 20
}

func statusFor(code string) int {
	switch code {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case errors.CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.CodeExtractionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
