package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/elimu-sms/admissions-api/internal/dto"
	"github.com/elimu-sms/admissions-api/internal/models"
	"github.com/elimu-sms/admissions-api/internal/repository"
	appErrors "github.com/elimu-sms/admissions-api/pkg/errors"
)

type applicationStore interface {
	Create(ctx context.Context, app *models.AdmissionApplication) error
	GetByID(ctx context.Context, id string) (*models.AdmissionApplication, error)
	AttachDocument(ctx context.Context, applicationID string, doc *models.ApplicationDocument) error
	VerifyDocument(ctx context.Context, applicationID string, docType models.DocumentType, verifierID string, at time.Time) error
	AdvanceStage(ctx context.Context, params repository.AdvanceStageParams) error
	ListByStage(ctx context.Context, filter models.ApplicationFilter) ([]models.AdmissionApplication, *models.Pagination, error)
	CountByStage(ctx context.Context) (map[models.Stage]int, error)
	CountByGrade(ctx context.Context) (map[string]int, error)
	NextReferenceSeq(ctx context.Context) (int64, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EventDispatcher receives committed stage-transition events. Dispatch must
// never block the request path; implementations hand events off to workers.
type EventDispatcher interface {
	Dispatch(event models.StageTransitionEvent)
}

// EventDispatcherFunc allows plain functions as dispatchers.
type EventDispatcherFunc func(event models.StageTransitionEvent)

// Dispatch implements EventDispatcher.
func (f EventDispatcherFunc) Dispatch(event models.StageTransitionEvent) {
	f(event)
}

const summaryCacheKey = "admissions:summary"

// AdmissionServiceConfig tunes workflow behaviour. SkipGrades is the
// injected interview skip-set; changing it never touches the state machine.
type AdmissionServiceConfig struct {
	SkipGrades        models.GradeSet
	RequiredDocuments []models.DocumentType
	AcademicYear      int
	SummaryCacheTTL   time.Duration
}

// AdmissionService is the workflow engine: it owns stage transitions,
// capability checks and queue/summary reads. All mutations funnel through
// SubmitApplication, AttachDocument, VerifyDocument and AdvanceStage.
type AdmissionService struct {
	repo       applicationStore
	audit      auditLogger
	dispatcher EventDispatcher
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	validate   *validator.Validate
	now        func() time.Time
	cfg        AdmissionServiceConfig
}

// AdmissionServiceParams groups constructor dependencies.
type AdmissionServiceParams struct {
	Repo       applicationStore
	Audit      auditLogger
	Dispatcher EventDispatcher
	Cache      *CacheService
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     AdmissionServiceConfig
}

// NewAdmissionService constructs the engine with sane defaults.
func NewAdmissionService(params AdmissionServiceParams) *AdmissionService {
	cfg := params.Config
	if cfg.SkipGrades == nil {
		cfg.SkipGrades = models.GradeSet{}
	}
	if len(cfg.RequiredDocuments) == 0 {
		cfg.RequiredDocuments = []models.DocumentType{
			models.DocumentBirthCertificate,
			models.DocumentPassportPhoto,
			models.DocumentParentID,
		}
	}
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := params.Dispatcher
	if dispatcher == nil {
		dispatcher = EventDispatcherFunc(func(models.StageTransitionEvent) {})
	}
	return &AdmissionService{
		repo:       params.Repo,
		audit:      params.Audit,
		dispatcher: dispatcher,
		cache:      params.Cache,
		metrics:    params.Metrics,
		logger:     logger,
		validate:   validator.New(),
		now:        time.Now,
		cfg:        cfg,
	}
}

// InterviewExempt reports whether the grade bypasses the interview stages.
func (s *AdmissionService) InterviewExempt(grade models.GradeLevel) bool {
	return s.cfg.SkipGrades.Contains(grade)
}

// SubmitApplication validates applicant and guardian data, creates the
// application and auto-advances it to documents_pending: every submission
// still requires document upload, so no application rests in submitted.
func (s *AdmissionService) SubmitApplication(ctx context.Context, req dto.SubmitApplicationRequest, actor models.Actor) (*models.AdmissionApplication, error) {
	if !actor.HasCapability(models.CapAdmissionsCreate) {
		return nil, capabilityError(models.CapAdmissionsCreate)
	}

	applicant, guardian, fields := s.validateSubmission(req)
	if len(fields) > 0 {
		return nil, appErrors.Validation(fields...)
	}

	now := s.now().UTC()
	year := s.cfg.AcademicYear
	if year == 0 {
		year = now.Year()
	}
	seq, err := s.repo.NextReferenceSeq(ctx)
	if err != nil {
		return nil, storeError(err, "failed to allocate application reference")
	}

	app := &models.AdmissionApplication{
		Reference: fmt.Sprintf("APP-%d-%04d", year, seq),
		Applicant: *applicant,
		Guardian:  *guardian,
		Stage:     models.StageDocumentsPending,
		Sponsored: req.Sponsored,
		CreatedAt: now,
		History: []models.StageTransition{{
			FromStage: models.StageSubmitted,
			ToStage:   models.StageDocumentsPending,
			ActorRole: string(actor.Role),
			ActorID:   actor.ID,
			Timestamp: now,
		}},
	}

	if err := s.repo.Create(ctx, app); err != nil {
		return nil, storeError(err, "failed to create application")
	}

	s.afterTransition(ctx, app, models.StageSubmitted, models.StageDocumentsPending, actor, models.AuditActionApplicationSubmit)
	return app, nil
}

// AttachDocument appends a document reference to the application. The stage
// is not changed.
func (s *AdmissionService) AttachDocument(ctx context.Context, applicationID string, docType models.DocumentType, fileRef, notes string, actor models.Actor) (*models.ApplicationDocument, error) {
	if !actor.HasCapability(models.CapAdmissionsCreate) {
		return nil, capabilityError(models.CapAdmissionsCreate)
	}
	if !docType.Valid() {
		return nil, appErrors.Validation(appErrors.FieldError{Field: "type", Message: "unknown document type"})
	}
	if fileRef == "" {
		return nil, appErrors.Validation(appErrors.FieldError{Field: "file", Message: "file is required"})
	}

	if _, err := s.loadApplication(ctx, applicationID); err != nil {
		return nil, err
	}

	doc := &models.ApplicationDocument{
		Type:       docType,
		FileRef:    fileRef,
		UploadedAt: s.now().UTC(),
	}
	if notes != "" {
		doc.Notes = &notes
	}
	if err := s.repo.AttachDocument(ctx, applicationID, doc); err != nil {
		return nil, storeError(err, "failed to attach document")
	}

	s.emitAudit(ctx, actor, models.AuditActionDocumentAttach, applicationID, map[string]interface{}{
		"type":    docType,
		"fileRef": fileRef,
	})
	return doc, nil
}

// VerifyDocument marks the matching unverified document as verified.
func (s *AdmissionService) VerifyDocument(ctx context.Context, applicationID string, docType models.DocumentType, actor models.Actor) error {
	if !actor.HasCapability(models.CapDocumentsVerify) {
		return capabilityError(models.CapDocumentsVerify)
	}
	if _, err := s.loadApplication(ctx, applicationID); err != nil {
		return err
	}
	if err := s.repo.VerifyDocument(ctx, applicationID, docType, actor.ID, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no matching unverified document")
		}
		return storeError(err, "failed to verify document")
	}
	s.emitAudit(ctx, actor, models.AuditActionDocumentVerify, applicationID, map[string]interface{}{"type": docType})
	return nil
}

// GetApplication returns one application with documents and history.
func (s *AdmissionService) GetApplication(ctx context.Context, id string, actor models.Actor) (*models.AdmissionApplication, error) {
	if !actor.HasCapability(models.CapAdmissionsView) {
		return nil, capabilityError(models.CapAdmissionsView)
	}
	return s.loadApplication(ctx, id)
}

// AdvanceStage is the single mutation entry point implementing the
// transition table. The persistence layer performs the stage check-and-set;
// a losing concurrent caller receives InvalidTransition with the stage that
// actually won.
func (s *AdmissionService) AdvanceStage(ctx context.Context, applicationID string, toStage models.Stage, actor models.Actor, payload dto.StagePayload) (*models.AdmissionApplication, error) {
	if !toStage.Valid() || toStage == models.StageSubmitted {
		return nil, appErrors.Validation(appErrors.FieldError{Field: "toStage", Message: "unknown target stage"})
	}

	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	params, err := s.prepareTransition(app, toStage, actor, payload)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AdvanceStage(ctx, *params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the compare-and-set race; report the stage that won.
			current := app.Stage
			if fresh, ferr := s.repo.GetByID(ctx, applicationID); ferr == nil {
				current = fresh.Stage
			}
			return nil, appErrors.InvalidTransition(string(current), string(toStage))
		}
		return nil, storeError(err, "failed to advance stage")
	}

	fromStage := app.Stage
	app.Stage = toStage
	app.UpdatedAt = params.History.Timestamp
	if params.Interview != nil {
		app.Interview = params.Interview
	}
	if params.Placement != nil {
		app.Placement = params.Placement
	}
	if params.Payment != nil {
		app.Payment = params.Payment
	}
	if params.Enrollment != nil {
		app.Enrollment = params.Enrollment
	}
	app.History = append(app.History, params.History)

	s.afterTransition(ctx, app, fromStage, toStage, actor, models.AuditActionStageAdvance)
	return app, nil
}

// prepareTransition enforces the transition table: reachability, the
// required capability and the stage-specific precondition and payload.
func (s *AdmissionService) prepareTransition(app *models.AdmissionApplication, toStage models.Stage, actor models.Actor, payload dto.StagePayload) (*repository.AdvanceStageParams, error) {
	now := s.now().UTC()
	params := &repository.AdvanceStageParams{
		ID:        app.ID,
		FromStage: app.Stage,
		ToStage:   toStage,
		History: models.StageTransition{
			FromStage: app.Stage,
			ToStage:   toStage,
			ActorRole: string(actor.Role),
			ActorID:   actor.ID,
			Timestamp: now,
		},
	}
	if note := strings.TrimSpace(payload.Note); note != "" {
		params.History.Note = &note
	}

	// Terminal exits are reachable from any non-terminal stage.
	if toStage == models.StageRejected || toStage == models.StageWithdrawn {
		if app.Stage.Terminal() {
			return nil, appErrors.InvalidTransition(string(app.Stage), string(toStage))
		}
		if !actor.HasCapability(models.CapAdmissionsManage) {
			return nil, capabilityError(models.CapAdmissionsManage)
		}
		return params, nil
	}

	if !s.reachable(app, toStage) {
		return nil, appErrors.InvalidTransition(string(app.Stage), string(toStage))
	}
	if cap, ok := stageCapability[toStage]; ok {
		if !actor.HasCapability(cap) {
			return nil, capabilityError(cap)
		}
	}

	switch toStage {
	case models.StageDocumentsVerified:
		if missing := s.unverifiedRequiredDocuments(app); len(missing) > 0 {
			e := appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("required documents not verified: %s", strings.Join(missing, ", ")))
			return nil, e
		}

	case models.StageInterviewPending:
		in := payload.Interview
		var fields []appErrors.FieldError
		if in == nil {
			fields = append(fields, appErrors.FieldError{Field: "payload.interview", Message: "interview schedule is required"})
		} else {
			if in.ScheduledAt.IsZero() {
				fields = append(fields, appErrors.FieldError{Field: "payload.interview.scheduledAt", Message: "scheduled time is required"})
			}
			if in.Location == "" {
				fields = append(fields, appErrors.FieldError{Field: "payload.interview.location", Message: "location is required"})
			}
			if in.AssessorID == "" {
				fields = append(fields, appErrors.FieldError{Field: "payload.interview.assessorId", Message: "assessor is required"})
			}
		}
		if len(fields) > 0 {
			return nil, appErrors.Validation(fields...)
		}
		params.Interview = &models.Interview{
			ScheduledAt: in.ScheduledAt,
			Location:    in.Location,
			AssessorID:  in.AssessorID,
		}

	case models.StageInterviewCompleted:
		if app.Interview == nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "no interview scheduled")
		}
		if payload.Assessment == nil || payload.Assessment.Result == "" {
			return nil, appErrors.Validation(appErrors.FieldError{Field: "payload.assessment.result", Message: "interview result is required"})
		}
		interview := *app.Interview
		interview.Result = payload.Assessment.Result
		interview.Score = payload.Assessment.Score
		interview.Notes = payload.Assessment.Notes
		interview.RecordedAt = &now
		params.Interview = &interview

	case models.StagePlacementOffered:
		if payload.Placement == nil || payload.Placement.ClassID == "" {
			return nil, appErrors.Validation(appErrors.FieldError{Field: "payload.placement.classId", Message: "class is required"})
		}
		params.Placement = &models.Placement{
			ClassID:   payload.Placement.ClassID,
			OfferedAt: now,
			OfferedBy: actor.ID,
		}

	case models.StagePaymentPending:
		// System-triggered once the offer is accepted; no extra role check.
		accepted := app.Placement != nil && app.Placement.Accepted
		if payload.Accepted != nil && *payload.Accepted {
			accepted = true
		}
		if app.Placement == nil || !accepted {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "placement offer not accepted")
		}
		placement := *app.Placement
		placement.Accepted = true
		params.Placement = &placement

	case models.StagePaymentRecorded:
		pay := payload.Payment
		var fields []appErrors.FieldError
		if pay == nil {
			fields = append(fields, appErrors.FieldError{Field: "payload.payment", Message: "payment details are required"})
		} else {
			if pay.Amount <= 0 {
				fields = append(fields, appErrors.FieldError{Field: "payload.payment.amount", Message: "amount must be greater than zero"})
			}
			if pay.Method == "" {
				fields = append(fields, appErrors.FieldError{Field: "payload.payment.method", Message: "method is required"})
			}
			if pay.Reference == "" {
				fields = append(fields, appErrors.FieldError{Field: "payload.payment.reference", Message: "reference is required"})
			}
		}
		if len(fields) > 0 {
			return nil, appErrors.Validation(fields...)
		}
		params.Payment = &models.Payment{
			Amount:     pay.Amount,
			Method:     pay.Method,
			Reference:  pay.Reference,
			RecordedAt: now,
			RecordedBy: actor.ID,
		}

	case models.StageEnrolled:
		if app.Payment == nil && !app.Sponsored {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "admission payment not recorded")
		}
		if payload.Enrollment == nil || payload.Enrollment.StudentID == "" {
			return nil, appErrors.Validation(appErrors.FieldError{Field: "payload.enrollment.studentId", Message: "student id is required"})
		}
		params.Enrollment = &models.Enrollment{
			StudentID:   payload.Enrollment.StudentID,
			CompletedAt: now,
			CompletedBy: actor.ID,
		}
	}

	return params, nil
}

// stageCapability names the capability gating entry into each stage.
// payment_pending is absent: it is system-triggered by offer acceptance.
var stageCapability = map[models.Stage]models.Capability{
	models.StageDocumentsVerified:  models.CapDocumentsVerify,
	models.StageInterviewPending:   models.CapInterviewSchedule,
	models.StageInterviewCompleted: models.CapInterviewAssess,
	models.StagePlacementOffered:   models.CapPlacementDecide,
	models.StagePaymentRecorded:    models.CapPaymentRecord,
	models.StageEnrolled:           models.CapEnrollmentComplete,
}

// reachable applies the forward transition table, including the interview
// skip for exempt grades and direct enrollment for sponsored applications.
func (s *AdmissionService) reachable(app *models.AdmissionApplication, toStage models.Stage) bool {
	skip := s.InterviewExempt(app.Applicant.GradeApplying)
	switch app.Stage {
	case models.StageDocumentsPending:
		return toStage == models.StageDocumentsVerified
	case models.StageDocumentsVerified:
		if skip {
			return toStage == models.StagePlacementOffered
		}
		return toStage == models.StageInterviewPending
	case models.StageInterviewPending:
		return toStage == models.StageInterviewCompleted
	case models.StageInterviewCompleted:
		return toStage == models.StagePlacementOffered
	case models.StagePlacementOffered:
		return toStage == models.StagePaymentPending
	case models.StagePaymentPending:
		if app.Sponsored && toStage == models.StageEnrolled {
			return true
		}
		return toStage == models.StagePaymentRecorded
	case models.StagePaymentRecorded:
		return toStage == models.StageEnrolled
	}
	return false
}

// GetQueue lists applications sitting in a stage, oldest first.
func (s *AdmissionService) GetQueue(ctx context.Context, query dto.QueueQuery, actor models.Actor) ([]models.AdmissionApplication, *models.Pagination, error) {
	if !actor.HasCapability(models.CapAdmissionsView) {
		return nil, nil, capabilityError(models.CapAdmissionsView)
	}

	var fields []appErrors.FieldError
	stage := models.Stage(query.Stage)
	if query.Stage == "" || !stage.Valid() {
		fields = append(fields, appErrors.FieldError{Field: "stage", Message: "valid stage is required"})
	}
	filter := models.ApplicationFilter{
		Stage:    stage,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Grade != "" {
		grade := models.GradeLevel(query.Grade)
		if !grade.Valid() {
			fields = append(fields, appErrors.FieldError{Field: "grade", Message: "unknown grade level"})
		}
		filter.Grade = grade
	}
	if query.From != "" {
		from, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			fields = append(fields, appErrors.FieldError{Field: "from", Message: "expected YYYY-MM-DD"})
		} else {
			filter.From = &from
		}
	}
	if query.To != "" {
		to, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			fields = append(fields, appErrors.FieldError{Field: "to", Message: "expected YYYY-MM-DD"})
		} else {
			end := to.Add(24*time.Hour - time.Nanosecond)
			filter.To = &end
		}
	}
	if len(fields) > 0 {
		return nil, nil, appErrors.Validation(fields...)
	}

	apps, pagination, err := s.repo.ListByStage(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list queue")
	}
	return apps, pagination, nil
}

// GetSummaryCounts aggregates live per-bucket counts. Counts are derived
// from current stage values only; the cache entry is dropped on every
// committed transition so it can never go stale.
func (s *AdmissionService) GetSummaryCounts(ctx context.Context, actor models.Actor) (*models.SummaryCounts, error) {
	if !actor.HasCapability(models.CapAdmissionsView) {
		return nil, capabilityError(models.CapAdmissionsView)
	}

	var cached models.SummaryCounts
	if hit, err := s.cache.Get(ctx, summaryCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	byStage, err := s.repo.CountByStage(ctx)
	if err != nil {
		return nil, storeError(err, "failed to aggregate stages")
	}
	byGrade, err := s.repo.CountByGrade(ctx)
	if err != nil {
		return nil, storeError(err, "failed to aggregate grades")
	}

	if s.metrics != nil {
		// Zero counts are set too so stages that drained report empty.
		for _, stage := range models.AllStages() {
			s.metrics.SetQueueDepth(string(stage), byStage[stage])
		}
	}

	counts := &models.SummaryCounts{
		DocumentsPending: byStage[models.StageSubmitted] + byStage[models.StageDocumentsPending],
		InterviewPending: byStage[models.StageInterviewPending],
		PlacementPending: byStage[models.StageDocumentsVerified] +
			byStage[models.StageInterviewCompleted] +
			byStage[models.StagePlacementOffered],
		PaymentPending:    byStage[models.StagePaymentPending],
		EnrollmentPending: byStage[models.StagePaymentRecorded],
		Enrolled:          byStage[models.StageEnrolled],
		Rejected:          byStage[models.StageRejected],
		Withdrawn:         byStage[models.StageWithdrawn],
		ByGrade:           byGrade,
	}
	counts.TotalPending = counts.DocumentsPending + counts.InterviewPending +
		counts.PlacementPending + counts.PaymentPending + counts.EnrollmentPending
	for _, n := range byStage {
		counts.Total += n
	}

	if err := s.cache.Set(ctx, summaryCacheKey, counts, s.cfg.SummaryCacheTTL); err != nil {
		s.logger.Warn("failed to cache summary counts", zap.Error(err))
	}
	return counts, nil
}

func (s *AdmissionService) loadApplication(ctx context.Context, id string) (*models.AdmissionApplication, error) {
	if id == "" {
		return nil, appErrors.ErrNotFound
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, storeError(err, "failed to load application")
	}
	return app, nil
}

func (s *AdmissionService) validateSubmission(req dto.SubmitApplicationRequest) (*models.Applicant, *models.Guardian, []appErrors.FieldError) {
	var fields []appErrors.FieldError

	a := req.Applicant
	if strings.TrimSpace(a.FirstName) == "" {
		fields = append(fields, appErrors.FieldError{Field: "applicant.firstName", Message: "first name is required"})
	}
	if strings.TrimSpace(a.LastName) == "" {
		fields = append(fields, appErrors.FieldError{Field: "applicant.lastName", Message: "last name is required"})
	}
	var dob time.Time
	if a.DateOfBirth == "" {
		fields = append(fields, appErrors.FieldError{Field: "applicant.dateOfBirth", Message: "date of birth is required"})
	} else {
		parsed, err := time.Parse("2006-01-02", a.DateOfBirth)
		if err != nil {
			fields = append(fields, appErrors.FieldError{Field: "applicant.dateOfBirth", Message: "expected YYYY-MM-DD"})
		} else {
			dob = parsed
		}
	}
	if strings.TrimSpace(a.Gender) == "" {
		fields = append(fields, appErrors.FieldError{Field: "applicant.gender", Message: "gender is required"})
	}
	grade := models.GradeLevel(a.GradeApplying)
	if a.GradeApplying == "" || !grade.Valid() {
		fields = append(fields, appErrors.FieldError{Field: "applicant.gradeApplying", Message: "valid grade level is required"})
	}
	appType := models.ApplicationType(a.ApplicationType)
	if a.ApplicationType == "" {
		appType = models.ApplicationTypeNew
	} else if !appType.Valid() {
		fields = append(fields, appErrors.FieldError{Field: "applicant.applicationType", Message: "must be new, transfer or returning"})
	}

	g := req.Guardian
	if strings.TrimSpace(g.Phone) == "" && strings.TrimSpace(g.PhoneAlt) == "" {
		fields = append(fields, appErrors.FieldError{Field: "guardian.phone", Message: "at least one guardian phone is required"})
	}
	if g.Email != "" {
		if err := s.validate.Var(g.Email, "email"); err != nil {
			fields = append(fields, appErrors.FieldError{Field: "guardian.email", Message: "invalid email address"})
		}
	}

	applicant := &models.Applicant{
		FirstName:       strings.TrimSpace(a.FirstName),
		LastName:        strings.TrimSpace(a.LastName),
		DateOfBirth:     dob,
		Gender:          strings.ToLower(strings.TrimSpace(a.Gender)),
		GradeApplying:   grade,
		PreviousSchool:  strings.TrimSpace(a.PreviousSchool),
		ApplicationType: appType,
	}
	guardian := &models.Guardian{
		GuardianRef:  strings.TrimSpace(g.GuardianRef),
		Name:         strings.TrimSpace(g.Name),
		Phone:        strings.TrimSpace(g.Phone),
		PhoneAlt:     strings.TrimSpace(g.PhoneAlt),
		Email:        strings.TrimSpace(g.Email),
		Relationship: strings.TrimSpace(g.Relationship),
		IDNumber:     strings.TrimSpace(g.IDNumber),
	}
	return applicant, guardian, fields
}

// unverifiedRequiredDocuments returns the required document types that are
// missing or not yet verified.
func (s *AdmissionService) unverifiedRequiredDocuments(app *models.AdmissionApplication) []string {
	var missing []string
	for _, docType := range s.cfg.RequiredDocuments {
		doc := app.Document(docType)
		if doc == nil || !doc.Verified() {
			missing = append(missing, string(docType))
		}
	}
	return missing
}

// afterTransition handles the post-commit side effects: none of them may
// fail the already-committed transition.
func (s *AdmissionService) afterTransition(ctx context.Context, app *models.AdmissionApplication, from, to models.Stage, actor models.Actor, action string) {
	if s.metrics != nil {
		s.metrics.RecordStageTransition(string(from), string(to))
	}
	if err := s.cache.Delete(ctx, summaryCacheKey); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.Error(err))
	}
	s.dispatcher.Dispatch(models.StageTransitionEvent{
		ApplicationID: app.ID,
		Reference:     app.Reference,
		FromStage:     from,
		ToStage:       to,
		Timestamp:     app.UpdatedAt,
	})
	s.emitAudit(ctx, actor, action, app.ID, map[string]interface{}{
		"fromStage": from,
		"toStage":   to,
	})
}

func (s *AdmissionService) emitAudit(ctx context.Context, actor models.Actor, action, applicationID string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(values)
	actorID := actor.ID
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "admission_application",
		ResourceID: &applicationID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "admission-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func capabilityError(cap models.Capability) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("actor lacks capability %s", cap))
}

func storeError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, message)
}
