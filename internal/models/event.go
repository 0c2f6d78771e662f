package models

import "time"

// StageTransitionEvent is emitted after every committed stage transition for
// the notification dispatcher to translate into parent and staff messages.
// Delivery failure never rolls back the transition.
type StageTransitionEvent struct {
	ApplicationID string    `json:"applicationId"`
	Reference     string    `json:"reference"`
	FromStage     Stage     `json:"fromStage"`
	ToStage       Stage     `json:"toStage"`
	Timestamp     time.Time `json:"timestamp"`
}
