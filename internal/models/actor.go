package models

import "github.com/golang-jwt/jwt/v5"

// Capability is a named permission required to execute a specific workflow
// action. Capability checks happen server-side inside the engine; the UI
// layer never decides authorization.
type Capability string

const (
	CapAdmissionsCreate   Capability = "admissions_create"
	CapAdmissionsView     Capability = "admissions_view"
	CapAdmissionsManage   Capability = "admissions_manage"
	CapDocumentsVerify    Capability = "documents_verify"
	CapInterviewSchedule  Capability = "interview_schedule"
	CapInterviewAssess    Capability = "interview_assess"
	CapPlacementDecide    Capability = "placement_decide"
	CapPaymentRecord      Capability = "payment_record"
	CapEnrollmentComplete Capability = "enrollment_complete"
)

// UserRole mirrors the admissions desk roles of the school system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleManager  UserRole = "MANAGER"
	RoleOperator UserRole = "OPERATOR"
	RoleViewer   UserRole = "VIEWER"
)

// Valid reports whether the role is one of the known admissions desk roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// roleCapabilities is the static role-to-capability table. Tokens may carry
// additional capability grants on top of these defaults.
var roleCapabilities = map[UserRole][]Capability{
	RoleAdmin: {
		CapAdmissionsCreate, CapAdmissionsView, CapAdmissionsManage,
		CapDocumentsVerify, CapInterviewSchedule, CapInterviewAssess,
		CapPlacementDecide, CapPaymentRecord, CapEnrollmentComplete,
	},
	RoleManager: {
		CapAdmissionsCreate, CapAdmissionsView,
		CapDocumentsVerify, CapInterviewSchedule, CapInterviewAssess,
		CapPlacementDecide,
	},
	RoleOperator: {
		CapAdmissionsCreate, CapAdmissionsView, CapDocumentsVerify,
	},
	RoleViewer: {
		CapAdmissionsView,
	},
}

// RoleCapabilities returns the default capability grants for a role.
func RoleCapabilities(role UserRole) []Capability {
	return roleCapabilities[role]
}

// Actor identifies who is performing an engine operation. Every engine call
// takes an explicit Actor; there is no ambient session state.
type Actor struct {
	ID           string
	Role         UserRole
	capabilities map[Capability]struct{}
}

// NewActor builds an actor from the role's static table plus any extra
// token-supplied capability grants.
func NewActor(id string, role UserRole, extra ...string) Actor {
	caps := make(map[Capability]struct{})
	for _, c := range roleCapabilities[role] {
		caps[c] = struct{}{}
	}
	for _, c := range extra {
		caps[Capability(c)] = struct{}{}
	}
	return Actor{ID: id, Role: role, capabilities: caps}
}

// HasCapability reports whether the actor holds the named capability.
func (a Actor) HasCapability(cap Capability) bool {
	_, ok := a.capabilities[cap]
	return ok
}

// JWTClaims represents the access token payload supplied by the identity
// provider.
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	Role         UserRole `json:"role"`
	Capabilities []string `json:"capabilities,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts token claims into an explicit engine actor.
func (c *JWTClaims) Actor() Actor {
	return NewActor(c.UserID, c.Role, c.Capabilities...)
}
