package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimu-sms/admissions-api/internal/models"
)

func newApplicationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func applicationRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "reference", "first_name", "last_name", "date_of_birth", "gender", "grade_applying",
		"previous_school", "application_type", "guardian_ref", "guardian_name", "guardian_phone",
		"guardian_phone_alt", "guardian_email", "guardian_relationship", "guardian_id_number",
		"stage", "sponsored", "interview", "placement", "payment", "enrollment", "created_at", "updated_at",
	}).AddRow(
		"app-1", "APP-2026-0001", "Amina", "Otieno", now.AddDate(-9, 0, 0), "female", "Grade 4",
		"", "new", "", "Grace Otieno", "+254700111222",
		"", "", "mother", "",
		"documents_pending", false, nil, nil, nil, nil, now, now,
	)
}

func TestApplicationRepositoryCreateWritesHistory(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO admission_applications").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO admission_stage_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	app := &models.AdmissionApplication{
		Reference: "APP-2026-0001",
		Applicant: models.Applicant{
			FirstName:     "Amina",
			LastName:      "Otieno",
			DateOfBirth:   time.Date(2017, 3, 12, 0, 0, 0, 0, time.UTC),
			Gender:        "female",
			GradeApplying: models.Grade4,
		},
		Guardian: models.Guardian{Name: "Grace Otieno", Phone: "+254700111222"},
		Stage:    models.StageDocumentsPending,
		History: []models.StageTransition{{
			FromStage: models.StageSubmitted,
			ToStage:   models.StageDocumentsPending,
			ActorRole: "ADMIN",
			ActorID:   "admin-1",
		}},
	}
	require.NoError(t, repo.Create(context.Background(), app))
	assert.NotEmpty(t, app.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryAdvanceStageCommitsWinner(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE admission_applications SET stage =").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admission_stage_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.AdvanceStage(context.Background(), AdvanceStageParams{
		ID:        "app-1",
		FromStage: models.StageDocumentsPending,
		ToStage:   models.StageDocumentsVerified,
		History: models.StageTransition{
			FromStage: models.StageDocumentsPending,
			ToStage:   models.StageDocumentsVerified,
			ActorRole: "ADMIN",
			ActorID:   "admin-1",
			Timestamp: time.Now().UTC(),
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryAdvanceStageLoserSeesNoRows(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE admission_applications SET stage =").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.AdvanceStage(context.Background(), AdvanceStageParams{
		ID:        "app-1",
		FromStage: models.StageDocumentsPending,
		ToStage:   models.StageDocumentsVerified,
		History: models.StageTransition{
			Timestamp: time.Now().UTC(),
		},
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryVerifyDocumentAlreadyVerified(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("UPDATE admission_documents SET verified_by =").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.VerifyDocument(context.Background(), "app-1", models.DocumentBirthCertificate, "admin-1", time.Now().UTC())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryVerifyDocumentMarksOldestOnly(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("ORDER BY uploaded_at ASC, id ASC\n\t\tLIMIT 1")).
		WithArgs("admin-1", at, "app-1", "birth_certificate").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.VerifyDocument(context.Background(), "app-1", models.DocumentBirthCertificate, "admin-1", at)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListByStageOrdersFIFO(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).
		WithArgs("documents_pending").
		WillReturnRows(applicationRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM admission_applications")).
		WithArgs("documents_pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	apps, pagination, err := repo.ListByStage(context.Background(), models.ApplicationFilter{
		Stage: models.StageDocumentsPending,
	})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "APP-2026-0001", apps[0].Reference)
	assert.Equal(t, models.StageDocumentsPending, apps[0].Stage)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryGetByIDLoadsSections(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM admission_applications WHERE id =")).
		WithArgs("app-1").
		WillReturnRows(applicationRows())
	mock.ExpectQuery(regexp.QuoteMeta("FROM admission_documents WHERE application_id =")).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "file_ref", "uploaded_at", "verified_by", "verified_at", "notes"}).
			AddRow("doc-1", "birth_certificate", "app-1/cert.pdf", now, nil, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM admission_stage_history WHERE application_id =")).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "from_stage", "to_stage", "actor_role", "actor_id", "occurred_at", "note"}).
			AddRow("h-1", "submitted", "documents_pending", "ADMIN", "admin-1", now, nil))

	app, err := repo.GetByID(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, app.Documents, 1)
	assert.Equal(t, models.DocumentBirthCertificate, app.Documents[0].Type)
	require.Len(t, app.History, 1)
	assert.Equal(t, models.StageSubmitted, app.History[0].FromStage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCountByStage(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery("GROUP BY stage").
		WillReturnRows(sqlmock.NewRows([]string{"stage", "count"}).
			AddRow("documents_pending", 4).
			AddRow("enrolled", 2))

	counts, err := repo.CountByStage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[models.StageDocumentsPending])
	assert.Equal(t, 2, counts[models.StageEnrolled])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryNextReferenceSeq(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery("nextval").
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(7))

	seq, err := repo.NextReferenceSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}
