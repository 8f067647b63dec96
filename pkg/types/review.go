package types

// ReviewDecision is an administrator's verdict on a submitted application.
type ReviewDecision struct {
	Status          ApplicationStatus `form:"status"`
	Notes           string            `form:"notes"`
	RejectionReason string            `form:"rejection_reason"`
}
