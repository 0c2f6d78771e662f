package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/elimu-sms/admissions-api/internal/dto"
	"github.com/elimu-sms/admissions-api/internal/models"
	appErrors "github.com/elimu-sms/admissions-api/pkg/errors"
	"github.com/elimu-sms/admissions-api/pkg/export"
)

const (
	exportPageSize      = 100
	offerAcceptanceDays = 14
)

// ExportService renders the admissions register as CSV and placement offer
// letters as PDF.
type ExportService struct {
	repo       applicationStore
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	schoolName string
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs the export service.
func NewExportService(repo applicationStore, schoolName string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:       repo,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		schoolName: schoolName,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterCSV renders the admissions register, optionally filtered by stage
// and grade. Pages through the store so the export never holds an unbounded
// result set in a single query.
func (s *ExportService) RegisterCSV(ctx context.Context, query dto.QueueQuery, actor models.Actor) ([]byte, error) {
	if !actor.HasCapability(models.CapAdmissionsView) {
		return nil, capabilityError(models.CapAdmissionsView)
	}

	var fields []appErrors.FieldError
	filter := models.ApplicationFilter{PageSize: exportPageSize}
	if query.Stage != "" {
		stage := models.Stage(query.Stage)
		if !stage.Valid() {
			fields = append(fields, appErrors.FieldError{Field: "stage", Message: "unknown stage"})
		}
		filter.Stage = stage
	}
	if query.Grade != "" {
		grade := models.GradeLevel(query.Grade)
		if !grade.Valid() {
			fields = append(fields, appErrors.FieldError{Field: "grade", Message: "unknown grade level"})
		}
		filter.Grade = grade
	}
	if len(fields) > 0 {
		return nil, appErrors.Validation(fields...)
	}

	headers := []string{
		"Reference", "First Name", "Last Name", "Grade", "Type",
		"Stage", "Guardian", "Guardian Phone", "Sponsored", "Submitted At",
	}
	dataset := export.Dataset{Headers: headers}

	for page := 1; ; page++ {
		filter.Page = page
		apps, pagination, err := s.repo.ListByStage(ctx, filter)
		if err != nil {
			return nil, storeError(err, "failed to read register")
		}
		for _, app := range apps {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Reference":      app.Reference,
				"First Name":     app.Applicant.FirstName,
				"Last Name":      app.Applicant.LastName,
				"Grade":          string(app.Applicant.GradeApplying),
				"Type":           string(app.Applicant.ApplicationType),
				"Stage":          string(app.Stage),
				"Guardian":       app.Guardian.Name,
				"Guardian Phone": app.Guardian.Phone,
				"Sponsored":      strconv.FormatBool(app.Sponsored),
				"Submitted At":   app.CreatedAt.Format(time.RFC3339),
			})
		}
		if pagination == nil || page*exportPageSize >= pagination.TotalCount {
			break
		}
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render register")
	}
	return payload, nil
}

// OfferLetterPDF renders the placement offer letter for one application.
// Requires a recorded placement offer.
func (s *ExportService) OfferLetterPDF(ctx context.Context, applicationID string, actor models.Actor) ([]byte, string, error) {
	if !actor.HasCapability(models.CapAdmissionsView) {
		return nil, "", capabilityError(models.CapAdmissionsView)
	}

	app, err := loadForExport(ctx, s.repo, applicationID)
	if err != nil {
		return nil, "", err
	}
	if app.Placement == nil {
		return nil, "", appErrors.Clone(appErrors.ErrConflict, "no placement offer recorded for application")
	}

	letter := export.OfferLetter{
		SchoolName:     s.schoolName,
		Reference:      app.Reference,
		ApplicantName:  fmt.Sprintf("%s %s", app.Applicant.FirstName, app.Applicant.LastName),
		GradeApplied:   string(app.Applicant.GradeApplying),
		ClassOffered:   app.Placement.ClassID,
		GuardianName:   app.Guardian.Name,
		OfferedAt:      app.Placement.OfferedAt,
		AcceptDeadline: app.Placement.OfferedAt.AddDate(0, 0, offerAcceptanceDays),
	}
	payload, err := s.pdf.RenderOfferLetter(letter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render offer letter")
	}
	filename := fmt.Sprintf("offer-letter-%s.pdf", app.Reference)
	return payload, filename, nil
}

func loadForExport(ctx context.Context, repo applicationStore, id string) (*models.AdmissionApplication, error) {
	app, err := repo.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, storeError(err, "failed to load application")
	}
	return app, nil
}
