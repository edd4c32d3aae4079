package letter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/scribe-api/internal/model"
	"github.com/jwalitptl/scribe-api/internal/service/letter"
	apperrors "github.com/jwalitptl/scribe-api/pkg/errors"
	"github.com/jwalitptl/scribe-api/pkg/httputil"
)

type Handler struct {
	service letter.LetterService
}

func NewHandler(service letter.LetterService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/patients/:id/letters", h.GenerateLetter)

	letters := r.Group("/letters")
	{
		letters.GET("", h.ListLetters)
		letters.GET("/:id", h.GetLetter)
		letters.PUT("/:id/content", h.UpdateContent)
		letters.POST("/:id/approve", h.Approve)
		letters.POST("/:id/reject", h.Reject)
		letters.GET("/:id/pdf", h.PDF)
		letters.GET("/:id/html", h.HTML)
	}
}

func (h *Handler) GenerateLetter(c *gin.Context) {
	patientID, err := httputil.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.GenerateLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid letter request", err))
		return
	}

	l, err := h.service.GenerateLetter(c.Request.Context(), patientID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, l)
}

func (h *Handler) ListLetters(c *gin.Context) {
	var filters model.LetterFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid query parameters", err))
		return
	}

	letters, total, err := h.service.ListLetters(c.Request.Context(), &filters)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithPagination(c, letters, filters.Page, filters.PageSize, total)
}

func (h *Handler) GetLetter(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	l, err := h.service.GetLetter(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, l)
}

func (h *Handler) UpdateContent(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.UpdateLetterContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid letter content", err))
		return
	}

	l, err := h.service.UpdateContent(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, l)
}

func (h *Handler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve)
}

func (h *Handler) Reject(c *gin.Context) {
	h.review(c, h.service.Reject)
}

type reviewFunc func(ctx context.Context, id int64, req *model.ReviewLetterRequest) (*model.Letter, error)

// review runs an approve or reject call. The comments body is optional.
func (h *Handler) review(c *gin.Context, fn reviewFunc) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.ReviewLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(apperrors.BadRequest("invalid review request", err))
		return
	}

	l, err := fn(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, l)
}

func (h *Handler) PDF(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	data, err := h.service.RenderPDF(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="letter-%d.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handler) HTML(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	page, err := h.service.RenderHTML(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
