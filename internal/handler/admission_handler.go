package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/elimu-sms/admissions-api/internal/dto"
	"github.com/elimu-sms/admissions-api/internal/models"
	"github.com/elimu-sms/admissions-api/internal/service"
	appErrors "github.com/elimu-sms/admissions-api/pkg/errors"
	"github.com/elimu-sms/admissions-api/pkg/response"
	"github.com/elimu-sms/admissions-api/pkg/storage"
)

// UploadLimits constrains accepted document uploads.
type UploadLimits struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// AdmissionHandler exposes the admissions workflow endpoints.
type AdmissionHandler struct {
	admissions *service.AdmissionService
	documents  *storage.DocumentStore
	signer     *storage.SignedURLSigner
	limits     UploadLimits
}

// NewAdmissionHandler constructs AdmissionHandler.
func NewAdmissionHandler(admissions *service.AdmissionService, documents *storage.DocumentStore, signer *storage.SignedURLSigner, limits UploadLimits) *AdmissionHandler {
	return &AdmissionHandler{admissions: admissions, documents: documents, signer: signer, limits: limits}
}

// Submit godoc
// @Summary Submit a new admission application
// @Tags Admissions
// @Accept json
// @Produce json
// @Param payload body dto.SubmitApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admissions [post]
func (h *AdmissionHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	app, err := h.admissions.SubmitApplication(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// Get godoc
// @Summary Get one application with documents and stage history
// @Tags Admissions
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admissions/{id} [get]
func (h *AdmissionHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	app, err := h.admissions.GetApplication(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.decorate(app), nil)
}

// Queue godoc
// @Summary List the FIFO queue for one stage
// @Tags Admissions
// @Produce json
// @Param stage query string true "Stage name"
// @Param grade query string false "Grade level filter"
// @Param from query string false "Submitted on or after (YYYY-MM-DD)"
// @Param to query string false "Submitted on or before (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admissions/queue [get]
func (h *AdmissionHandler) Queue(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.QueueQuery{
		Stage: c.Query("stage"),
		Grade: c.Query("grade"),
		From:  c.Query("from"),
		To:    c.Query("to"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.PageSize = size
	}

	apps, pagination, err := h.admissions.GetQueue(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, pagination)
}

// Summary godoc
// @Summary Dashboard counts of applications per pipeline bucket
// @Tags Admissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admissions/summary [get]
func (h *AdmissionHandler) Summary(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	counts, err := h.admissions.GetSummaryCounts(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// Advance godoc
// @Summary Advance an application to a new pipeline stage
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.AdvanceStageRequest true "Target stage and stage payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admissions/{id}/advance [post]
func (h *AdmissionHandler) Advance(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AdvanceStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	app, err := h.admissions.AdvanceStage(c.Request.Context(), c.Param("id"), models.Stage(req.ToStage), actor, req.Payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// AttachDocument godoc
// @Summary Upload a supporting document for an application
// @Tags Admissions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Application ID"
// @Param type formData string true "Document type"
// @Param notes formData string false "Reviewer notes"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Router /admissions/{id}/documents [post]
func (h *AdmissionHandler) AttachDocument(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AttachDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form payload"))
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Validation(appErrors.FieldError{Field: "file", Message: "file is required"}))
		return
	}
	if h.limits.MaxFileSizeBytes > 0 && file.Size > h.limits.MaxFileSizeBytes {
		response.Error(c, appErrors.Validation(appErrors.FieldError{Field: "file", Message: "file exceeds the size limit"}))
		return
	}
	if len(h.limits.AllowedMIMEs) > 0 {
		contentType := file.Header.Get("Content-Type")
		allowed := false
		for _, mime := range h.limits.AllowedMIMEs {
			if strings.EqualFold(mime, contentType) {
				allowed = true
				break
			}
		}
		if !allowed {
			response.Error(c, appErrors.Validation(appErrors.FieldError{Field: "file", Message: "unsupported file type"}))
			return
		}
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close()

	applicationID := c.Param("id")
	fileRef, err := h.documents.Store(applicationID, file.Filename, src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document"))
		return
	}

	doc, err := h.admissions.AttachDocument(c.Request.Context(), applicationID, models.DocumentType(req.Type), fileRef, req.Notes, actor)
	if err != nil {
		// Keep the store consistent when the metadata write failed.
		_ = h.documents.Remove(fileRef)
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// VerifyDocument godoc
// @Summary Mark an uploaded document as verified
// @Tags Admissions
// @Produce json
// @Param id path string true "Application ID"
// @Param type path string true "Document type"
// @Success 204
// @Router /admissions/{id}/documents/{type}/verify [post]
func (h *AdmissionHandler) VerifyDocument(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	err := h.admissions.VerifyDocument(c.Request.Context(), c.Param("id"), models.DocumentType(c.Param("type")), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadDocument godoc
// @Summary Download a stored document using a signed token
// @Tags Admissions
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Failure 401 {object} response.Envelope
// @Router /admissions/documents/download [get]
func (h *AdmissionHandler) DownloadDocument(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Validation(appErrors.FieldError{Field: "token", Message: "token is required"}))
		return
	}
	_, fileRef, _, err := h.signer.Parse(token, false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}
	reader, err := h.documents.Open(fileRef)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "document not found"))
		return
	}
	defer reader.Close()

	parts := strings.Split(fileRef, "/")
	filename := parts[len(parts)-1]
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", reader, nil)
}

// decorate attaches signed download links to the application's documents.
func (h *AdmissionHandler) decorate(app *models.AdmissionApplication) dto.ApplicationResponse {
	resp := dto.ApplicationResponse{AdmissionApplication: app}
	if h.signer == nil {
		return resp
	}
	for _, doc := range app.Documents {
		token, expiresAt, err := h.signer.Generate(app.ID, doc.FileRef)
		if err != nil {
			continue
		}
		resp.DocumentLinks = append(resp.DocumentLinks, dto.DocumentDownload{
			FileRef:   doc.FileRef,
			URL:       "/api/v1/admissions/documents/download?token=" + token,
			ExpiresAt: expiresAt,
		})
	}
	return resp
}
