package models

import "time"

// Stage is a named position in the admissions pipeline.
type Stage string

const (
	StageSubmitted          Stage = "submitted"
	StageDocumentsPending   Stage = "documents_pending"
	StageDocumentsVerified  Stage = "documents_verified"
	StageInterviewPending   Stage = "interview_pending"
	StageInterviewCompleted Stage = "interview_completed"
	StagePlacementOffered   Stage = "placement_offered"
	StagePaymentPending     Stage = "payment_pending"
	StagePaymentRecorded    Stage = "payment_recorded"
	StageEnrolled           Stage = "enrolled"
	StageRejected           Stage = "rejected"
	StageWithdrawn          Stage = "withdrawn"
)

// AllStages lists every pipeline stage in order, terminals last.
func AllStages() []Stage {
	return []Stage{
		StageSubmitted, StageDocumentsPending, StageDocumentsVerified,
		StageInterviewPending, StageInterviewCompleted, StagePlacementOffered,
		StagePaymentPending, StagePaymentRecorded, StageEnrolled,
		StageRejected, StageWithdrawn,
	}
}

// Valid reports whether the stage is a known pipeline stage.
func (s Stage) Valid() bool {
	switch s {
	case StageSubmitted, StageDocumentsPending, StageDocumentsVerified,
		StageInterviewPending, StageInterviewCompleted, StagePlacementOffered,
		StagePaymentPending, StagePaymentRecorded, StageEnrolled,
		StageRejected, StageWithdrawn:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	return s == StageEnrolled || s == StageRejected || s == StageWithdrawn
}

// ApplicationType distinguishes how the applicant enters the school.
type ApplicationType string

const (
	ApplicationTypeNew       ApplicationType = "new"
	ApplicationTypeTransfer  ApplicationType = "transfer"
	ApplicationTypeReturning ApplicationType = "returning"
)

// Valid reports whether the application type is recognised.
func (t ApplicationType) Valid() bool {
	switch t {
	case ApplicationTypeNew, ApplicationTypeTransfer, ApplicationTypeReturning:
		return true
	}
	return false
}

// DocumentType enumerates the verification documents an application may carry.
type DocumentType string

const (
	DocumentBirthCertificate DocumentType = "birth_certificate"
	DocumentPreviousReport   DocumentType = "previous_report"
	DocumentTransferLetter   DocumentType = "transfer_letter"
	DocumentPassportPhoto    DocumentType = "passport_photo"
	DocumentParentID         DocumentType = "parent_id"
	DocumentMedicalRecord    DocumentType = "medical_record"
	DocumentOther            DocumentType = "other"
)

// Valid reports whether the document type is recognised.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentBirthCertificate, DocumentPreviousReport, DocumentTransferLetter,
		DocumentPassportPhoto, DocumentParentID, DocumentMedicalRecord, DocumentOther:
		return true
	}
	return false
}

// Applicant holds the prospective student's personal details.
type Applicant struct {
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	DateOfBirth     time.Time       `json:"dateOfBirth"`
	Gender          string          `json:"gender"`
	GradeApplying   GradeLevel      `json:"gradeApplying"`
	PreviousSchool  string          `json:"previousSchool,omitempty"`
	ApplicationType ApplicationType `json:"applicationType"`
}

// Guardian holds contact details for the applicant's guardian. GuardianRef
// points at the external parent registry record; the engine never manages
// the registry itself.
type Guardian struct {
	GuardianRef  string `json:"guardianRef,omitempty"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	PhoneAlt     string `json:"phoneAlt,omitempty"`
	Email        string `json:"email,omitempty"`
	Relationship string `json:"relationship"`
	IDNumber     string `json:"idNumber,omitempty"`
}

// ApplicationDocument references one uploaded verification file. The bytes
// live in the document store; only metadata is kept here.
type ApplicationDocument struct {
	ID         string       `db:"id" json:"id"`
	Type       DocumentType `db:"type" json:"type"`
	FileRef    string       `db:"file_ref" json:"fileRef"`
	UploadedAt time.Time    `db:"uploaded_at" json:"uploadedAt"`
	VerifiedBy *string      `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time   `db:"verified_at" json:"verifiedAt,omitempty"`
	Notes      *string      `db:"notes" json:"notes,omitempty"`
}

// Verified reports whether the document has been checked by a staff member.
func (d ApplicationDocument) Verified() bool {
	return d.VerifiedBy != nil && *d.VerifiedBy != ""
}

// Interview records scheduling and outcome of the applicant interview.
// Absent entirely for grades in the interview skip-set.
type Interview struct {
	ScheduledAt time.Time  `json:"scheduledAt"`
	Location    string     `json:"location"`
	AssessorID  string     `json:"assessorId"`
	Result      string     `json:"result,omitempty"`
	Score       *float64   `json:"score,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	RecordedAt  *time.Time `json:"recordedAt,omitempty"`
}

// Placement records the class offer made to the applicant.
type Placement struct {
	ClassID   string    `json:"classId"`
	OfferedAt time.Time `json:"offeredAt"`
	OfferedBy string    `json:"offeredBy"`
	Accepted  bool      `json:"accepted"`
}

// Payment records the admission fee payment.
type Payment struct {
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	Reference  string    `json:"reference"`
	RecordedAt time.Time `json:"recordedAt"`
	RecordedBy string    `json:"recordedBy"`
}

// Enrollment records the conversion into an enrolled student. StudentID is
// assigned by the external student registry.
type Enrollment struct {
	StudentID   string    `json:"studentId"`
	CompletedAt time.Time `json:"completedAt"`
	CompletedBy string    `json:"completedBy"`
}

// StageTransition is one append-only audit entry; never mutated or deleted.
type StageTransition struct {
	ID        string    `db:"id" json:"id"`
	FromStage Stage     `db:"from_stage" json:"fromStage"`
	ToStage   Stage     `db:"to_stage" json:"toStage"`
	ActorRole string    `db:"actor_role" json:"actorRole"`
	ActorID   string    `db:"actor_id" json:"actorId"`
	Timestamp time.Time `db:"occurred_at" json:"timestamp"`
	Note      *string   `db:"note" json:"note,omitempty"`
}

// AdmissionApplication is the workflow entity, one per prospective student.
type AdmissionApplication struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`

	Applicant Applicant `json:"applicant"`
	Guardian  Guardian  `json:"guardian"`

	Stage     Stage `json:"stage"`
	Sponsored bool  `json:"sponsored"`

	Documents  []ApplicationDocument `json:"documents"`
	Interview  *Interview            `json:"interview,omitempty"`
	Placement  *Placement            `json:"placement,omitempty"`
	Payment    *Payment              `json:"payment,omitempty"`
	Enrollment *Enrollment           `json:"enrollment,omitempty"`

	History []StageTransition `json:"history"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Document returns the first document of the given type, or nil.
func (a *AdmissionApplication) Document(docType DocumentType) *ApplicationDocument {
	for i := range a.Documents {
		if a.Documents[i].Type == docType {
			return &a.Documents[i]
		}
	}
	return nil
}

// ApplicationFilter constrains queue listings. Queues are always ordered by
// ascending CreatedAt so the earliest applicants are processed first.
type ApplicationFilter struct {
	Stage    Stage
	Grade    GradeLevel
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// SummaryCounts aggregates live queue sizes per stage bucket.
type SummaryCounts struct {
	DocumentsPending  int `json:"documents_pending"`
	InterviewPending  int `json:"interview_pending"`
	PlacementPending  int `json:"placement_pending"`
	PaymentPending    int `json:"payment_pending"`
	EnrollmentPending int `json:"enrollment_pending"`
	TotalPending      int `json:"total_pending"`

	Total     int `json:"total"`
	Enrolled  int `json:"enrolled"`
	Rejected  int `json:"rejected"`
	Withdrawn int `json:"withdrawn"`

	ByGrade map[string]int `json:"by_grade,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
