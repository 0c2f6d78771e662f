package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/elimu-sms/admissions-api/internal/models"
)

// ApplicationRepository persists admission applications, their documents and
// the append-only stage history.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// applicationRow mirrors the admission_applications table. The optional
// stage sections are stored as JSONB columns.
type applicationRow struct {
	ID                   string    `db:"id"`
	Reference            string    `db:"reference"`
	FirstName            string    `db:"first_name"`
	LastName             string    `db:"last_name"`
	DateOfBirth          time.Time `db:"date_of_birth"`
	Gender               string    `db:"gender"`
	GradeApplying        string    `db:"grade_applying"`
	PreviousSchool       string    `db:"previous_school"`
	ApplicationType      string    `db:"application_type"`
	GuardianRef          string    `db:"guardian_ref"`
	GuardianName         string    `db:"guardian_name"`
	GuardianPhone        string    `db:"guardian_phone"`
	GuardianPhoneAlt     string    `db:"guardian_phone_alt"`
	GuardianEmail        string    `db:"guardian_email"`
	GuardianRelationship string    `db:"guardian_relationship"`
	GuardianIDNumber     string    `db:"guardian_id_number"`
	Stage                string    `db:"stage"`
	Sponsored            bool      `db:"sponsored"`
	Interview            []byte    `db:"interview"`
	Placement            []byte    `db:"placement"`
	Payment              []byte    `db:"payment"`
	Enrollment           []byte    `db:"enrollment"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

const applicationColumns = `id, reference, first_name, last_name, date_of_birth, gender, grade_applying,
       previous_school, application_type, guardian_ref, guardian_name, guardian_phone, guardian_phone_alt,
       guardian_email, guardian_relationship, guardian_id_number, stage, sponsored,
       interview, placement, payment, enrollment, created_at, updated_at`

func (r applicationRow) toModel() (*models.AdmissionApplication, error) {
	app := &models.AdmissionApplication{
		ID:        r.ID,
		Reference: r.Reference,
		Applicant: models.Applicant{
			FirstName:       r.FirstName,
			LastName:        r.LastName,
			DateOfBirth:     r.DateOfBirth,
			Gender:          r.Gender,
			GradeApplying:   models.GradeLevel(r.GradeApplying),
			PreviousSchool:  r.PreviousSchool,
			ApplicationType: models.ApplicationType(r.ApplicationType),
		},
		Guardian: models.Guardian{
			GuardianRef:  r.GuardianRef,
			Name:         r.GuardianName,
			Phone:        r.GuardianPhone,
			PhoneAlt:     r.GuardianPhoneAlt,
			Email:        r.GuardianEmail,
			Relationship: r.GuardianRelationship,
			IDNumber:     r.GuardianIDNumber,
		},
		Stage:     models.Stage(r.Stage),
		Sponsored: r.Sponsored,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Interview) > 0 {
		app.Interview = &models.Interview{}
		if err := json.Unmarshal(r.Interview, app.Interview); err != nil {
			return nil, fmt.Errorf("decode interview: %w", err)
		}
	}
	if len(r.Placement) > 0 {
		app.Placement = &models.Placement{}
		if err := json.Unmarshal(r.Placement, app.Placement); err != nil {
			return nil, fmt.Errorf("decode placement: %w", err)
		}
	}
	if len(r.Payment) > 0 {
		app.Payment = &models.Payment{}
		if err := json.Unmarshal(r.Payment, app.Payment); err != nil {
			return nil, fmt.Errorf("decode payment: %w", err)
		}
	}
	if len(r.Enrollment) > 0 {
		app.Enrollment = &models.Enrollment{}
		if err := json.Unmarshal(r.Enrollment, app.Enrollment); err != nil {
			return nil, fmt.Errorf("decode enrollment: %w", err)
		}
	}
	return app, nil
}

// Create inserts the application row together with its first history entry
// in one transaction.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.AdmissionApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = app.CreatedAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create application: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertApp = `INSERT INTO admission_applications
	(id, reference, first_name, last_name, date_of_birth, gender, grade_applying, previous_school,
	 application_type, guardian_ref, guardian_name, guardian_phone, guardian_phone_alt, guardian_email,
	 guardian_relationship, guardian_id_number, stage, sponsored, created_at, updated_at)
	VALUES (:id, :reference, :first_name, :last_name, :date_of_birth, :gender, :grade_applying, :previous_school,
	 :application_type, :guardian_ref, :guardian_name, :guardian_phone, :guardian_phone_alt, :guardian_email,
	 :guardian_relationship, :guardian_id_number, :stage, :sponsored, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertApp, map[string]interface{}{
		"id":                    app.ID,
		"reference":             app.Reference,
		"first_name":            app.Applicant.FirstName,
		"last_name":             app.Applicant.LastName,
		"date_of_birth":         app.Applicant.DateOfBirth,
		"gender":                app.Applicant.Gender,
		"grade_applying":        string(app.Applicant.GradeApplying),
		"previous_school":       app.Applicant.PreviousSchool,
		"application_type":      string(app.Applicant.ApplicationType),
		"guardian_ref":          app.Guardian.GuardianRef,
		"guardian_name":         app.Guardian.Name,
		"guardian_phone":        app.Guardian.Phone,
		"guardian_phone_alt":    app.Guardian.PhoneAlt,
		"guardian_email":        app.Guardian.Email,
		"guardian_relationship": app.Guardian.Relationship,
		"guardian_id_number":    app.Guardian.IDNumber,
		"stage":                 string(app.Stage),
		"sponsored":             app.Sponsored,
		"created_at":            app.CreatedAt,
		"updated_at":            app.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("create application: %w", err)
	}

	for i := range app.History {
		if err := insertHistory(ctx, tx, app.ID, &app.History[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create application: %w", err)
	}
	return nil
}

// GetByID fetches the application with its documents and history.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.AdmissionApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM admission_applications WHERE id = $1`, applicationColumns)
	var row applicationRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	app, err := row.toModel()
	if err != nil {
		return nil, err
	}

	const docsQuery = `SELECT id, type, file_ref, uploaded_at, verified_by, verified_at, notes
	FROM admission_documents WHERE application_id = $1 ORDER BY uploaded_at ASC, id ASC`
	if err := r.db.SelectContext(ctx, &app.Documents, docsQuery, id); err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	const historyQuery = `SELECT id, from_stage, to_stage, actor_role, actor_id, occurred_at, note
	FROM admission_stage_history WHERE application_id = $1 ORDER BY occurred_at ASC, id ASC`
	if err := r.db.SelectContext(ctx, &app.History, historyQuery, id); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return app, nil
}

// AttachDocument appends one document reference. The stage is untouched.
func (r *ApplicationRepository) AttachDocument(ctx context.Context, applicationID string, doc *models.ApplicationDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO admission_documents (id, application_id, type, file_ref, uploaded_at, notes)
	VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, doc.ID, applicationID, string(doc.Type), doc.FileRef, doc.UploadedAt, doc.Notes); err != nil {
		return fmt.Errorf("attach document: %w", err)
	}
	return nil
}

// VerifyDocument marks the matching unverified document as verified. When
// the same type was uploaded more than once, only the oldest unverified entry
// is marked. Returns sql.ErrNoRows when no matching unverified document
// exists.
func (r *ApplicationRepository) VerifyDocument(ctx context.Context, applicationID string, docType models.DocumentType, verifierID string, at time.Time) error {
	const query = `UPDATE admission_documents SET verified_by = $1, verified_at = $2
	WHERE id = (
		SELECT id FROM admission_documents
		WHERE application_id = $3 AND type = $4 AND verified_by IS NULL
		ORDER BY uploaded_at ASC, id ASC
		LIMIT 1
	)`
	result, err := r.db.ExecContext(ctx, query, verifierID, at, applicationID, string(docType))
	if err != nil {
		return fmt.Errorf("verify document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check verify rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AdvanceStageParams groups everything one committed transition writes.
type AdvanceStageParams struct {
	ID        string
	FromStage models.Stage
	ToStage   models.Stage

	Interview  *models.Interview
	Placement  *models.Placement
	Payment    *models.Payment
	Enrollment *models.Enrollment

	History models.StageTransition
}

// AdvanceStage performs the optimistic compare-and-set transition: the stage
// column is updated only when it still equals FromStage, and the history
// entry is appended in the same transaction. A concurrent loser observes
// sql.ErrNoRows and must re-read the current stage.
func (r *ApplicationRepository) AdvanceStage(ctx context.Context, params AdvanceStageParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin advance stage: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	setParts := []string{"stage = :to_stage", "updated_at = :updated_at"}
	args := map[string]interface{}{
		"id":         params.ID,
		"from_stage": string(params.FromStage),
		"to_stage":   string(params.ToStage),
		"updated_at": params.History.Timestamp,
	}
	if params.Interview != nil {
		payload, err := json.Marshal(params.Interview)
		if err != nil {
			return fmt.Errorf("encode interview: %w", err)
		}
		setParts = append(setParts, "interview = :interview")
		args["interview"] = payload
	}
	if params.Placement != nil {
		payload, err := json.Marshal(params.Placement)
		if err != nil {
			return fmt.Errorf("encode placement: %w", err)
		}
		setParts = append(setParts, "placement = :placement")
		args["placement"] = payload
	}
	if params.Payment != nil {
		payload, err := json.Marshal(params.Payment)
		if err != nil {
			return fmt.Errorf("encode payment: %w", err)
		}
		setParts = append(setParts, "payment = :payment")
		args["payment"] = payload
	}
	if params.Enrollment != nil {
		payload, err := json.Marshal(params.Enrollment)
		if err != nil {
			return fmt.Errorf("encode enrollment: %w", err)
		}
		setParts = append(setParts, "enrollment = :enrollment")
		args["enrollment"] = payload
	}

	query := fmt.Sprintf(`UPDATE admission_applications SET %s WHERE id = :id AND stage = :from_stage`,
		strings.Join(setParts, ", "))
	result, err := tx.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("advance stage: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check advance rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := insertHistory(ctx, tx, params.ID, &params.History); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit advance stage: %w", err)
	}
	return nil
}

// ListByStage returns the FIFO queue of applications sitting in the stage,
// ordered by ascending created_at so the earliest applicants come first.
// An empty stage matches all stages, which the register export relies on.
func (r *ApplicationRepository) ListByStage(ctx context.Context, filter models.ApplicationFilter) ([]models.AdmissionApplication, *models.Pagination, error) {
	conditions := []string{"1 = 1"}
	var args []interface{}

	if filter.Stage != "" {
		args = append(args, string(filter.Stage))
		conditions = append(conditions, fmt.Sprintf("stage = $%d", len(args)))
	}
	if filter.Grade != "" {
		args = append(args, string(filter.Grade))
		conditions = append(conditions, fmt.Sprintf("grade_applying = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	clause := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM admission_applications WHERE %s
	ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d`, applicationColumns, clause, size, offset)

	var rows []applicationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list applications: %w", err)
	}

	apps := make([]models.AdmissionApplication, 0, len(rows))
	for _, row := range rows {
		app, err := row.toModel()
		if err != nil {
			return nil, nil, err
		}
		apps = append(apps, *app)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM admission_applications WHERE %s`, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, nil, fmt.Errorf("count applications: %w", err)
	}

	return apps, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CountByStage aggregates live application counts per stage.
func (r *ApplicationRepository) CountByStage(ctx context.Context) (map[models.Stage]int, error) {
	const query = `SELECT stage, COUNT(*) AS count FROM admission_applications GROUP BY stage`
	rows := []struct {
		Stage string `db:"stage"`
		Count int    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count by stage: %w", err)
	}
	counts := make(map[models.Stage]int, len(rows))
	for _, row := range rows {
		counts[models.Stage(row.Stage)] = row.Count
	}
	return counts, nil
}

// CountByGrade aggregates application counts per grade applied for.
func (r *ApplicationRepository) CountByGrade(ctx context.Context) (map[string]int, error) {
	const query = `SELECT grade_applying, COUNT(*) AS count FROM admission_applications GROUP BY grade_applying`
	rows := []struct {
		Grade string `db:"grade_applying"`
		Count int    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count by grade: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Grade] = row.Count
	}
	return counts, nil
}

// NextReferenceSeq returns the next value of the application reference
// sequence, used to build human-facing reference numbers.
func (r *ApplicationRepository) NextReferenceSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.db.GetContext(ctx, &seq, `SELECT nextval('admission_reference_seq')`); err != nil {
		return 0, fmt.Errorf("next reference: %w", err)
	}
	return seq, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, applicationID string, entry *models.StageTransition) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO admission_stage_history
	(id, application_id, from_stage, to_stage, actor_role, actor_id, occurred_at, note)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query, entry.ID, applicationID, string(entry.FromStage), string(entry.ToStage),
		entry.ActorRole, entry.ActorID, entry.Timestamp, entry.Note); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}
