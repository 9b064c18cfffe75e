package server

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal/filestore"
	"ortkod/internal/pipeline"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	outputFilename  = "processed_output.xlsx"
)

func readUpload(c *gin.Context, field string) ([]byte, bool, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, false, nil
		}
		return nil, false, errors.WithStack(err)
	}
	return readMultipartFile(header)
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, bool, error) {
	f, err := header.Open()
	if err != nil {
		return nil, true, errors.WithStack(err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, true, errors.WithStack(err)
	}
	return content, true, nil
}

func (h *Handlers) OrtValues(c *gin.Context) {
	content, found, err := readUpload(c, "file")
	if err != nil {
		badRequest(c, "invalid upload: "+err.Error())
		return
	}
	if !found {
		badRequest(c, "No file provided")
		return
	}

	orts, err := pipeline.ReadOrtValues(content)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	ok(c, gin.H{"ortValues": orts})
}

func (h *Handlers) Process(c *gin.Context) {
	ctx := c.Request.Context()

	content, found, err := readUpload(c, "file")
	if err != nil {
		badRequest(c, "invalid upload: "+err.Error())
		return
	}
	rawOrts, hasOrts := c.GetPostForm("selectedOrts")
	if !found || !hasOrts {
		badRequest(c, "Missing required parameters")
		return
	}
	var selectedOrts []string
	if err := json.Unmarshal([]byte(rawOrts), &selectedOrts); err != nil {
		badRequest(c, "selectedOrts must be a JSON array of strings")
		return
	}

	out, err := h.processor.ProcessUpload(ctx, content, selectedOrts)
	if err != nil {
		var missing *pipeline.MissingColumnsError
		switch {
		case errors.As(err, &missing):
			badRequest(c, err.Error())
		case errors.Is(err, pipeline.ErrInvalidWorkbook), errors.Is(err, pipeline.ErrEmptyWorkbook):
			badRequest(c, err.Error())
		case ctx.Err() != nil:
			h.logger.Info("processing abandoned, client went away", zap.String("request_id", c.GetString(requestIDKey)))
			c.Abort()
		default:
			_ = c.Error(err)
			internalError(c, err.Error())
		}
		return
	}

	fileID, err := h.files.Put(ctx, out.Workbook)
	if err != nil {
		_ = c.Error(err)
		internalError(c, "failed to store output file")
		return
	}

	ok(c, gin.H{
		"fileId":    fileID,
		"traceId":   out.TraceID,
		"codeCheck": out.CodeCheck,
		"counts": gin.H{
			"valid":   out.Groups.Len(),
			"invalid": len(out.InvalidRows),
		},
	})
}

func (h *Handlers) Download(c *gin.Context) {
	data, err := h.files.Get(c.Request.Context(), c.Param("fileId"))
	if errors.Is(err, filestore.ErrNotFound) {
		notFound(c, "File not found or expired")
		return
	}
	if err != nil {
		_ = c.Error(err)
		internalError(c, "Failed to download file")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+outputFilename+`"`)
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, xlsxContentType, data)
}
