package dto

import (
	"time"

	"github.com/elimu-sms/admissions-api/internal/models"
)

// SubmitApplicationRequest carries applicant and guardian data for a new
// admission application.
type SubmitApplicationRequest struct {
	Applicant ApplicantPayload `json:"applicant"`
	Guardian  GuardianPayload  `json:"guardian"`
	Sponsored bool             `json:"sponsored"`
}

// ApplicantPayload mirrors the applicant section of the submission form.
type ApplicantPayload struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	DateOfBirth     string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender          string `json:"gender"`
	GradeApplying   string `json:"gradeApplying"`
	PreviousSchool  string `json:"previousSchool"`
	ApplicationType string `json:"applicationType"`
}

// GuardianPayload mirrors the guardian section of the submission form.
type GuardianPayload struct {
	GuardianRef  string `json:"guardianRef"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	PhoneAlt     string `json:"phoneAlt"`
	Email        string `json:"email" validate:"omitempty,email"`
	Relationship string `json:"relationship"`
	IDNumber     string `json:"idNumber"`
}

// AttachDocumentRequest accompanies a multipart document upload.
type AttachDocumentRequest struct {
	Type  string `form:"type" validate:"required"`
	Notes string `form:"notes"`
}

// AdvanceStageRequest asks the engine to move an application to a new stage.
// Payload carries the stage-specific data for the target stage.
type AdvanceStageRequest struct {
	ToStage string       `json:"toStage" validate:"required"`
	Payload StagePayload `json:"payload"`
}

// StagePayload bundles the optional stage-specific sections; the engine
// validates that the section required by the target stage is present.
type StagePayload struct {
	Interview  *InterviewSchedulePayload `json:"interview,omitempty"`
	Assessment *InterviewResultPayload   `json:"assessment,omitempty"`
	Placement  *PlacementPayload         `json:"placement,omitempty"`
	Accepted   *bool                     `json:"accepted,omitempty"`
	Payment    *PaymentPayload           `json:"payment,omitempty"`
	Enrollment *EnrollmentPayload        `json:"enrollment,omitempty"`
	Note       string                    `json:"note,omitempty"`
}

// InterviewSchedulePayload is required when advancing to interview_pending.
type InterviewSchedulePayload struct {
	ScheduledAt time.Time `json:"scheduledAt"`
	Location    string    `json:"location"`
	AssessorID  string    `json:"assessorId"`
}

// InterviewResultPayload is required when advancing to interview_completed.
type InterviewResultPayload struct {
	Result string   `json:"result"`
	Score  *float64 `json:"score,omitempty"`
	Notes  string   `json:"notes,omitempty"`
}

// PlacementPayload is required when advancing to placement_offered.
type PlacementPayload struct {
	ClassID string `json:"classId"`
}

// PaymentPayload is required when advancing to payment_recorded.
type PaymentPayload struct {
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
}

// EnrollmentPayload is required when advancing to enrolled.
type EnrollmentPayload struct {
	StudentID string `json:"studentId"`
}

// QueueQuery mirrors supported queue listing filters.
type QueueQuery struct {
	Stage    string
	Grade    string
	From     string
	To       string
	Page     int
	PageSize int
}

// DocumentDownload describes a signed download link for a stored document.
type DocumentDownload struct {
	FileRef   string    `json:"fileRef"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ApplicationResponse decorates the application with signed document links.
type ApplicationResponse struct {
	*models.AdmissionApplication
	DocumentLinks []DocumentDownload `json:"documentLinks,omitempty"`
}
