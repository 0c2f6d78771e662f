package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimu-sms/admissions-api/internal/dto"
	"github.com/elimu-sms/admissions-api/internal/models"
	appErrors "github.com/elimu-sms/admissions-api/pkg/errors"
)

func TestRegisterCSVIncludesAllApplications(t *testing.T) {
	store := newMockApplicationStore()
	admissions, _, _ := newTestService(store)
	mustSubmit(t, admissions, models.Grade4)
	mustSubmit(t, admissions, models.GradePP1)

	svc := NewExportService(store, "Elimu School", nil)
	payload, err := svc.RegisterCSV(context.Background(), dto.QueueQuery{}, adminActor())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Reference")
	assert.Contains(t, string(payload), "Amina")
	assert.Contains(t, string(payload), "documents_pending")
}

func TestRegisterCSVRejectsUnknownStage(t *testing.T) {
	svc := NewExportService(newMockApplicationStore(), "Elimu School", nil)

	_, err := svc.RegisterCSV(context.Background(), dto.QueueQuery{Stage: "bogus"}, adminActor())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRegisterCSVRequiresViewCapability(t *testing.T) {
	svc := NewExportService(newMockApplicationStore(), "Elimu School", nil)

	actor := models.NewActor("stranger", models.UserRole("UNKNOWN"))
	_, err := svc.RegisterCSV(context.Background(), dto.QueueQuery{}, actor)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestOfferLetterPDFRendersForPlacedApplication(t *testing.T) {
	store := newMockApplicationStore()
	admissions, _, _ := newTestService(store)

	app := mustSubmit(t, admissions, models.GradePP1)
	attachAndVerifyRequiredDocuments(t, admissions, app.ID)
	advance(t, admissions, app.ID, models.StageDocumentsVerified, dto.StagePayload{})
	advance(t, admissions, app.ID, models.StagePlacementOffered, dto.StagePayload{
		Placement: &dto.PlacementPayload{ClassID: "class-pp1a"},
	})

	svc := NewExportService(store, "Elimu School", nil)
	payload, filename, err := svc.OfferLetterPDF(context.Background(), app.ID, adminActor())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
	assert.Equal(t, "offer-letter-"+app.Reference+".pdf", filename)
}

func TestOfferLetterPDFRequiresPlacement(t *testing.T) {
	store := newMockApplicationStore()
	admissions, _, _ := newTestService(store)
	app := mustSubmit(t, admissions, models.Grade4)

	svc := NewExportService(store, "Elimu School", nil)
	_, _, err := svc.OfferLetterPDF(context.Background(), app.ID, adminActor())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestOfferLetterPDFNotFound(t *testing.T) {
	svc := NewExportService(newMockApplicationStore(), "Elimu School", nil)

	_, _, err := svc.OfferLetterPDF(context.Background(), "missing", adminActor())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
