package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal/pipeline"
	"ortkod/internal/refsheet"
)

func (h *Handlers) CheckCodes(c *gin.Context) {
	var body struct {
		Codes json.RawMessage `json:"codes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "codes must be an array")
		return
	}
	var raw []any
	if len(body.Codes) == 0 || json.Unmarshal(body.Codes, &raw) != nil || raw == nil {
		badRequest(c, "codes must be an array")
		return
	}

	codes := make([]string, len(raw))
	for i, v := range raw {
		switch t := v.(type) {
		case nil:
		case string:
			codes[i] = t
		default:
			codes[i] = fmt.Sprint(t)
		}
	}

	c.JSON(http.StatusOK, h.checker.CheckCodes(c.Request.Context(), codes))
}

func (h *Handlers) Import(c *gin.Context) {
	content, found, err := readUpload(c, "file")
	if err != nil {
		badRequest(c, "invalid upload: "+err.Error())
		return
	}
	kind := strings.TrimSpace(c.PostForm("type"))
	if !found || kind == "" {
		badRequest(c, "File and type are required")
		return
	}

	records, err := pipeline.ReadRecords(content)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.importer.Import(c.Request.Context(), kind, records)
	if errors.Is(err, refsheet.ErrUnknownImportType) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	ok(c, gin.H{"count": res.Count, "updatedRange": res.UpdatedRange})
}

func (h *Handlers) ListRuns(c *gin.Context) {
	limit := 20
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	runs, err := h.db.ListRuns(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	ok(c, gin.H{"items": runs})
}
