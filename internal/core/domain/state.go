package domain

// RotationState maps a credential group to the index last handed out.
// Stored as a single JSON object, created lazily, never deleted.
type RotationState map[string]int

// DedupeDecision is the outcome of a dedupe check.
type DedupeDecision string

const (
	DedupeAdmit    DedupeDecision = "admit"
	DedupeSuppress DedupeDecision = "suppress"
)
