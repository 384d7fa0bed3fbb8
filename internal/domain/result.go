package domain

// Outcome tags how a check-in report was applied.
type Outcome string

const (
	// OutcomeCreated means the report started a new session.
	OutcomeCreated Outcome = "created"
	// OutcomeMerged means the report incremented an existing session.
	OutcomeMerged Outcome = "merged"
	// OutcomeSkipped means reconciliation was short-circuited (degraded
	// mode: debug enabled or no database configured) and nothing persisted.
	OutcomeSkipped Outcome = "skipped"
)

// ReconciliationResult is the successful result of recording a session.
// Rejections (validation, token mismatch, cooldown) are returned as sentinel
// errors instead, so a result always carries an applied outcome.
type ReconciliationResult struct {
	Outcome Outcome  `json:"outcome"`
	Session *Session `json:"session,omitempty"`
}
