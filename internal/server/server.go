package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ortkod/internal"
	"ortkod/internal/filestore"
	"ortkod/internal/logging"
	"ortkod/internal/pipeline"
	"ortkod/internal/refsheet"
	"ortkod/internal/storage"
)

type Processor interface {
	ProcessUpload(ctx context.Context, content []byte, selectedOrts []string) (pipeline.Output, error)
}

type CodeChecker interface {
	CheckCodes(ctx context.Context, codes []string) internal.CodeCheckResult
}

type SheetImporter interface {
	Import(ctx context.Context, kind string, records []map[string]string) (refsheet.ImportResult, error)
}

type Deps struct {
	DB        *storage.DB
	Processor Processor
	Checker   CodeChecker
	Importer  SheetImporter
	Files     filestore.Store
	Logger    *zap.Logger

	MaxUploadBytes int64
	LogRequests    bool
}

type Handlers struct {
	db        *storage.DB
	processor Processor
	checker   CodeChecker
	importer  SheetImporter
	files     filestore.Store
	logger    *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	logger := logging.OrNop(d.Logger)
	h := &Handlers{
		db:        d.DB,
		processor: d.Processor,
		checker:   d.Checker,
		importer:  d.Importer,
		files:     d.Files,
		logger:    logger,
	}

	r := gin.New()
	// order numbers may contain "/" and arrive percent-encoded in delete paths
	r.UseRawPath = true
	r.UnescapePathValues = true
	if d.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = d.MaxUploadBytes
	}

	r.Use(Recovery(logger), RequestID())
	if d.LogRequests {
		r.Use(Logger(logger))
	}
	r.Use(LimitBody(d.MaxUploadBytes))

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.POST("/excel/ort-values", h.OrtValues)
		api.POST("/excel/process", h.Process)
		api.GET("/download/:fileId", h.Download)
		api.POST("/check-codes", h.CheckCodes)
		api.POST("/import", h.Import)
		api.GET("/runs", h.ListRuns)

		api.GET("/rules", h.ListRules)
		api.POST("/rules", h.CreateRule)
		api.PATCH("/rules/:id", h.UpdateRule)

		api.GET("/abbreviations", h.ListAbbreviations)
		api.POST("/abbreviations", h.UpsertAbbreviation)
		api.DELETE("/abbreviations/:orderNumber", h.DeleteAbbreviation)

		api.GET("/replacements", h.ListReplacements)
		api.POST("/replacements", h.UpsertReplacement)
		api.DELETE("/replacements/:originalOrderNumber", h.DeleteReplacement)

		api.GET("/exclusions", h.ListExclusions)
		api.POST("/exclusions", h.AddExclusion)
		api.DELETE("/exclusions/:orderNumber", h.DeleteExclusion)
	}

	return r
}

func (h *Handlers) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
