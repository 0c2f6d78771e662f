package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/elimu-sms/admissions-api/internal/models"
)

func capabilityRouter(cap models.Capability, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if claims != nil {
		router.Use(func(c *gin.Context) {
			c.Set(ContextUserKey, claims)
		})
	}
	router.Use(RequireCapability(cap))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestRequireCapabilityAllowsGrantedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u-1", Role: models.RoleOperator}
	router := capabilityRouter(models.CapDocumentsVerify, claims)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireCapabilityRejectsMissingGrant(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u-2", Role: models.RoleViewer}
	router := capabilityRouter(models.CapPaymentRecord, claims)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireCapabilityHonoursTokenExtras(t *testing.T) {
	claims := &models.JWTClaims{
		UserID:       "u-3",
		Role:         models.RoleViewer,
		Capabilities: []string{string(models.CapPaymentRecord)},
	}
	router := capabilityRouter(models.CapPaymentRecord, claims)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireCapabilityRejectsAnonymous(t *testing.T) {
	router := capabilityRouter(models.CapAdmissionsView, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
