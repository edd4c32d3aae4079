package result

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scribe-api/internal/service/result"
	apperrors "github.com/jwalitptl/scribe-api/pkg/errors"
	"github.com/jwalitptl/scribe-api/pkg/httputil"
)

// FileField is the multipart field carrying the uploaded lab file.
const FileField = "file"

type Handler struct {
	service result.ResultService
}

func NewHandler(service result.ResultService) *Handler {
	return &Handler{service: service}
}

// UploadRoutes lists the route patterns that accept file uploads.
func UploadRoutes(prefix string) []string {
	return []string{
		prefix + "/patients/:id/results",
		prefix + "/upload-results",
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/patients/:id/results", h.UploadResults)
	r.POST("/upload-results", h.UploadResultsByQuery)
	r.GET("/patients/:id/results", h.ListResults)
	r.GET("/patients/:id/batches", h.ListBatches)
}

func (h *Handler) UploadResults(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.ingest(c, id)
}

// UploadResultsByQuery takes the patient id from the patient_id query or
// form value.
func (h *Handler) UploadResultsByQuery(c *gin.Context) {
	raw := c.Query("patient_id")
	if raw == "" {
		raw = c.PostForm("patient_id")
	}
	id, err := httputil.ParseIDValue("patient_id", raw)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.ingest(c, id)
}

func (h *Handler) ingest(c *gin.Context, patientID int64) {
	fh, err := c.FormFile(FileField)
	if err != nil {
		_ = c.Error(uploadError(err))
		return
	}

	f, err := fh.Open()
	if err != nil {
		_ = c.Error(apperrors.BadInput("failed to open uploaded file", err))
		return
	}
	defer f.Close()

	view, err := h.service.Ingest(c.Request.Context(), patientID, fh.Filename, f)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) ListResults(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var batchID *uuid.UUID
	if raw := c.Query("batch_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			_ = c.Error(apperrors.BadRequest("batch_id must be a UUID", err))
			return
		}
		batchID = &parsed
	}

	results, err := h.service.ListResults(c.Request.Context(), id, batchID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, results)
}

func (h *Handler) ListBatches(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	batches, err := h.service.ListBatches(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, batches)
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.TooLarge(tooLarge.Limit)
	}
	if errors.Is(err, http.ErrMissingFile) {
		return apperrors.BadInput(`multipart field "file" is required`, err)
	}
	return apperrors.BadInput("invalid multipart upload", err)
}
