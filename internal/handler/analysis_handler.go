package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/export"
	"resumeanalyzer/internal/logger"
	"resumeanalyzer/internal/middleware"
	"resumeanalyzer/internal/service"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	multipartMemory = 8 << 20
)

// AnalysisHandler handles résumé analysis endpoints.
type AnalysisHandler struct {
	analysis       service.AnalysisService
	maxUploadBytes int64
	now            func() time.Time
	log            *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler. maxUploadMB bounds the
// whole multipart body; zero disables the limit.
func NewAnalysisHandler(analysis service.AnalysisService, maxUploadMB int64, log *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysis:       analysis,
		maxUploadBytes: maxUploadMB << 20,
		now:            time.Now,
		log:            logger.OrNop(log),
	}
}

// Analyze handles POST /api/v1/analyze
// @Summary Analyze résumés
// @Description Extract text from each uploaded résumé and evaluate it with the language model. With a non-empty query the résumés are ranked against it, otherwise each one is summarised. Per-file failures are reported in the file's slot.
// @Tags analysis
// @Accept multipart/form-data
// @Produce json
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param files formData file true "Résumé files (PDF, PNG, JPEG, TIFF, BMP, WEBP); repeat for several"
// @Param query formData string false "Job description or search query; enables ranking"
// @Param request_id formData string false "Caller request ID (defaults to the X-Request-ID)"
// @Param user_id formData string false "Caller user ID (ignored when authenticated)"
// @Param format query string false "Response format" Enums(json, csv, xlsx) default(json)
// @Success 200 {object} APIResponse{data=AnalysisResponse} "Per-file summaries or ranking"
// @Failure 400 {object} APIResponse "No files, too many files or unknown format"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 413 {object} APIResponse "Upload too large"
// @Failure 504 {object} APIResponse "Request timed out"
// @Security BearerAuth
// @Router /analyze [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	format, err := parseFormat(c.DefaultQuery("format", formatJSON))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		HandleError(c, h.log, uploadError(err))
		return
	}
	form := c.Request.MultipartForm

	docs, err := readDocuments(form.File["files"])
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	input := domain.AnalysisInput{
		RequestID: formValue(form, "request_id"),
		UserID:    formValue(form, "user_id"),
		Query:     formValue(form, "query"),
		Documents: docs,
	}
	if input.RequestID == "" {
		input.RequestID = c.GetString(middleware.ContextKeyRequestID)
	}
	// An authenticated identity always wins over the form field.
	if userID, err := middleware.GetUserID(c); err == nil {
		input.UserID = userID
	}

	batch, err := h.analysis.Analyze(c.Request.Context(), input)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	switch format {
	case formatCSV:
		h.download(c, batch, formatCSV, contentTypeCSV, export.WriteCSV)
	case formatXLSX:
		h.download(c, batch, formatXLSX, contentTypeXLSX, export.WriteXLSX)
	default:
		RespondOK(c, NewAnalysisResponse(batch))
	}
}

func (h *AnalysisHandler) download(
	c *gin.Context,
	batch *domain.BatchResult,
	ext, contentType string,
	write func(io.Writer, *domain.BatchResult) error,
) {
	var buf bytes.Buffer
	if err := write(&buf, batch); err != nil {
		HandleError(c, h.log, fmt.Errorf("rendering %s export: %w", ext, err))
		return
	}
	filename := export.BuildFilename(string(batch.Mode), batch.RequestID, ext, h.now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func parseFormat(raw string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(raw)); f {
	case "", formatJSON:
		return formatJSON, nil
	case formatCSV, formatXLSX:
		return f, nil
	default:
		return "", domain.ErrUnknownFormat
	}
}

func uploadError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return domain.ErrFileTooLarge
	}
	return fmt.Errorf("%w: expected multipart form data", domain.ErrInvalidRequest)
}

func readDocuments(headers []*multipart.FileHeader) ([]domain.RawDocument, error) {
	if len(headers) == 0 {
		return nil, domain.ErrNoFiles
	}
	docs := make([]domain.RawDocument, 0, len(headers))
	for _, fh := range headers {
		data, err := readFile(fh)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrInvalidRequest, fh.Filename, err)
		}
		docs = append(docs, domain.RawDocument{
			Filename:     fh.Filename,
			Data:         data,
			DeclaredMIME: fh.Header.Get("Content-Type"),
		})
	}
	return docs, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func formValue(form *multipart.Form, key string) string {
	if vals := form.Value[key]; len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
