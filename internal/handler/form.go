package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/formdesk/backend/internal/model"
	"github.com/formdesk/backend/internal/service"
)

type FormHandler struct {
	svc *service.FormService
}

func NewFormHandler(svc *service.FormService) *FormHandler {
	return &FormHandler{svc: svc}
}

// Create godoc
// @Summary Submit a form
// @Description Multipart submission; files go to object storage.
// @Tags forms
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param category formData string false "Category"
// @Param body formData string false "Body text"
// @Param files formData file false "Attachments"
// @Success 201 {object} model.FormCreateResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/forms [post]
func (h *FormHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	title := c.PostForm("title")
	category := c.PostForm("category")
	body := c.PostForm("body")

	var uploads []service.Upload
	files := form.File["files"]
	opened := make([]multipart.File, 0, len(files))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable attachment"})
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, service.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			SizeBytes:   fh.Size,
			Body:        f,
		})
	}

	created, err := h.svc.Submit(c.Request.Context(), GetAuthUser(c), title, category, body, uploads)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.FormCreateResponse{
		Status:       "submitted",
		SubmissionID: created.ID,
		Attachments:  len(uploads),
	})
}

// Get godoc
// @Summary Get one submission
// @Description Owner or admin only. Attachment entries carry presigned download URLs.
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Success 200 {object} model.FormDetail
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/forms/{id} [get]
func (h *FormHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	detail, err := h.svc.Get(c.Request.Context(), GetAuthUser(c), id)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// List godoc
// @Summary List submissions
// @Description Callers see their own submissions; admins see all.
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.FormSubmission
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/forms [get]
func (h *FormHandler) List(c *gin.Context) {
	subs, err := h.svc.List(c.Request.Context(), GetAuthUser(c))
	if err != nil {
		writeAuthError(c, err)
		return
	}
	if subs == nil {
		subs = []model.FormSubmission{}
	}
	c.JSON(http.StatusOK, subs)
}
