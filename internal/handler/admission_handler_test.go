package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimu-sms/admissions-api/internal/middleware"
	"github.com/elimu-sms/admissions-api/internal/models"
	"github.com/elimu-sms/admissions-api/internal/repository"
	"github.com/elimu-sms/admissions-api/internal/service"
)

type fakeStore struct {
	apps map[string]*models.AdmissionApplication
	seq  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{apps: make(map[string]*models.AdmissionApplication)}
}

func (f *fakeStore) Create(_ context.Context, app *models.AdmissionApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	copied := *app
	f.apps[app.ID] = &copied
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*models.AdmissionApplication, error) {
	app, ok := f.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *app
	return &copied, nil
}

func (f *fakeStore) AttachDocument(_ context.Context, id string, doc *models.ApplicationDocument) error {
	app, ok := f.apps[id]
	if !ok {
		return sql.ErrNoRows
	}
	app.Documents = append(app.Documents, *doc)
	return nil
}

func (f *fakeStore) VerifyDocument(_ context.Context, id string, docType models.DocumentType, verifierID string, at time.Time) error {
	app, ok := f.apps[id]
	if !ok {
		return sql.ErrNoRows
	}
	for i := range app.Documents {
		if app.Documents[i].Type == docType && app.Documents[i].VerifiedBy == nil {
			app.Documents[i].VerifiedBy = &verifierID
			app.Documents[i].VerifiedAt = &at
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStore) AdvanceStage(_ context.Context, params repository.AdvanceStageParams) error {
	app, ok := f.apps[params.ID]
	if !ok || app.Stage != params.FromStage {
		return sql.ErrNoRows
	}
	app.Stage = params.ToStage
	app.History = append(app.History, params.History)
	return nil
}

func (f *fakeStore) ListByStage(_ context.Context, filter models.ApplicationFilter) ([]models.AdmissionApplication, *models.Pagination, error) {
	var out []models.AdmissionApplication
	for _, app := range f.apps {
		if filter.Stage == "" || app.Stage == filter.Stage {
			out = append(out, *app)
		}
	}
	return out, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(out)}, nil
}

func (f *fakeStore) CountByStage(_ context.Context) (map[models.Stage]int, error) {
	counts := make(map[models.Stage]int)
	for _, app := range f.apps {
		counts[app.Stage]++
	}
	return counts, nil
}

func (f *fakeStore) CountByGrade(_ context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

func (f *fakeStore) NextReferenceSeq(_ context.Context) (int64, error) {
	f.seq++
	return f.seq, nil
}

func newTestHandler(store *fakeStore) *AdmissionHandler {
	svc := service.NewAdmissionService(service.AdmissionServiceParams{
		Repo: store,
		Config: service.AdmissionServiceConfig{
			SkipGrades:   models.NewGradeSet([]string{"PP1"}),
			AcademicYear: 2026,
		},
	})
	return NewAdmissionHandler(svc, nil, nil, UploadLimits{})
}

func testContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func withAdminClaims(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID: "admin-1",
		Role:   models.RoleAdmin,
	})
}

func submissionBody() map[string]interface{} {
	return map[string]interface{}{
		"applicant": map[string]interface{}{
			"firstName":     "Baraka",
			"lastName":      "Mwangi",
			"dateOfBirth":   "2018-06-02",
			"gender":        "male",
			"gradeApplying": "Grade 2",
		},
		"guardian": map[string]interface{}{
			"name":  "Jane Mwangi",
			"phone": "+254711222333",
		},
	}
}

func TestSubmitRequiresAuthentication(t *testing.T) {
	handler := newTestHandler(newFakeStore())
	c, rec := testContext(t, http.MethodPost, "/admissions", submissionBody())

	handler.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitCreatesApplication(t *testing.T) {
	handler := newTestHandler(newFakeStore())
	c, rec := testContext(t, http.MethodPost, "/admissions", submissionBody())
	withAdminClaims(c)

	handler.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data models.AdmissionApplication `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "APP-2026-0001", envelope.Data.Reference)
	assert.Equal(t, models.StageDocumentsPending, envelope.Data.Stage)
}

func TestSubmitRejectsInvalidPayload(t *testing.T) {
	handler := newTestHandler(newFakeStore())
	c, rec := testContext(t, http.MethodPost, "/admissions", map[string]interface{}{})
	withAdminClaims(c)

	handler.Submit(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error struct {
			Code   string `json:"code"`
			Fields []struct {
				Field string `json:"field"`
			} `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	assert.NotEmpty(t, envelope.Error.Fields)
}

func TestAdvanceReportsInvalidTransition(t *testing.T) {
	store := newFakeStore()
	appID := uuid.NewString()
	store.apps[appID] = &models.AdmissionApplication{
		ID:    appID,
		Stage: models.StageDocumentsPending,
		Applicant: models.Applicant{
			GradeApplying: models.Grade2,
		},
	}
	handler := newTestHandler(store)

	c, rec := testContext(t, http.MethodPost, "/admissions/"+appID+"/advance", map[string]interface{}{
		"toStage": "enrolled",
		"payload": map[string]interface{}{"enrollment": map[string]interface{}{"studentId": "s-1"}},
	})
	withAdminClaims(c)
	c.Params = gin.Params{{Key: "id", Value: appID}}

	handler.Advance(c)

	require.Equal(t, http.StatusConflict, rec.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_TRANSITION", envelope.Error.Code)
}

func TestAdvanceNotFound(t *testing.T) {
	handler := newTestHandler(newFakeStore())
	missing := uuid.NewString()

	c, rec := testContext(t, http.MethodPost, "/admissions/"+missing+"/advance", map[string]interface{}{
		"toStage": "documents_verified",
	})
	withAdminClaims(c)
	c.Params = gin.Params{{Key: "id", Value: missing}}

	handler.Advance(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryReturnsBuckets(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 3; i++ {
		id := uuid.NewString()
		store.apps[id] = &models.AdmissionApplication{ID: id, Stage: models.StageDocumentsPending}
	}
	handler := newTestHandler(store)

	c, rec := testContext(t, http.MethodGet, "/admissions/summary", nil)
	withAdminClaims(c)

	handler.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.SummaryCounts `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.DocumentsPending)
	assert.Equal(t, 3, envelope.Data.TotalPending)
}

func TestQueueRequiresStage(t *testing.T) {
	handler := newTestHandler(newFakeStore())

	c, rec := testContext(t, http.MethodGet, "/admissions/queue", nil)
	withAdminClaims(c)

	handler.Queue(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyDocumentMissingDocument(t *testing.T) {
	store := newFakeStore()
	appID := uuid.NewString()
	store.apps[appID] = &models.AdmissionApplication{ID: appID, Stage: models.StageDocumentsPending}
	handler := newTestHandler(store)

	c, rec := testContext(t, http.MethodPost, "/admissions/"+appID+"/documents/birth_certificate/verify", nil)
	withAdminClaims(c)
	c.Params = gin.Params{{Key: "id", Value: appID}, {Key: "type", Value: "birth_certificate"}}

	handler.VerifyDocument(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
