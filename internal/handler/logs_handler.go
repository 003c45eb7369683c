package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resumeanalyzer/internal/logger"
	"resumeanalyzer/internal/port"
)

// LogsHandler serves the analysis audit trail.
type LogsHandler struct {
	repo    port.AuditRepository
	archive port.DocumentArchive
	log     *zap.Logger
}

// NewLogsHandler creates a new LogsHandler. repo may be nil when auditing is
// disabled; archive may be nil when uploads are not archived.
func NewLogsHandler(repo port.AuditRepository, archive port.DocumentArchive, log *zap.Logger) *LogsHandler {
	return &LogsHandler{repo: repo, archive: archive, log: logger.OrNop(log)}
}

// List handles GET /api/v1/logs
// @Summary List analysis logs
// @Description List recent per-file audit entries, newest first. Archived files carry a presigned download URL.
// @Tags logs
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} APIResponse{data=[]LogItem,meta=PagMeta} "Recent audit entries"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 503 {object} APIResponse "Audit logging disabled"
// @Security BearerAuth
// @Router /logs [get]
func (h *LogsHandler) List(c *gin.Context) {
	if h.repo == nil {
		RespondError(c, http.StatusServiceUnavailable, "AUDIT_DISABLED", "analysis logs are not being recorded")
		return
	}

	offset, limit := parsePagination(c)
	entries, total, err := h.repo.ListRecent(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	items := make([]LogItem, len(entries))
	for i := range entries {
		items[i] = LogItem{LogEntry: entries[i]}
		if h.archive == nil || entries[i].ArchiveKey == "" {
			continue
		}
		url, err := h.archive.URL(c.Request.Context(), entries[i].ArchiveKey)
		if err != nil {
			h.log.Warn("presigning archived resume failed",
				zap.String("key", entries[i].ArchiveKey), zap.Error(err))
			continue
		}
		items[i].ArchiveURL = url
	}

	RespondPaginated(c, items, PagMeta{Total: total, Offset: offset, Limit: limit})
}
