package domain

// ChangeRequest is a tracked proposal to modify system behavior or policy.
type ChangeRequest struct {
	ID             string  `json:"id"`
	RequesterAgent string  `json:"requester_agent"`
	Type           string  `json:"type" enum:"best-practice-suggestion,bug-fix,policy-update"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Justification  string  `json:"justification,omitempty"`
	Priority       string  `json:"priority" enum:"low,medium,high,critical"`
	Status         string  `json:"status" enum:"pending,under-review,approved,rejected,applied"`
	FailureCount   int     `json:"failure_count"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
	AppliedAt      *string `json:"applied_at,omitempty" format:"date-time"`
}

// Reflection is the structured narrative attached to a work documentation entry.
type Reflection struct {
	Before               string   `json:"before,omitempty"`
	During               string   `json:"during,omitempty"`
	After                string   `json:"after,omitempty"`
	Issues               []string `json:"issues,omitempty"`
	TechnicalLimitations []string `json:"technical_limitations,omitempty"`
}

// WorkError records a failure observed during a unit of work.
type WorkError struct {
	Type     string `json:"type"`
	Severity string `json:"severity" enum:"error,warning,info"`
	Message  string `json:"message"`
	Solution string `json:"solution,omitempty"`
}

// ValidationRecord is the validator's judgment on a work documentation entry.
type ValidationRecord struct {
	ValidatedBy string   `json:"validated_by"`
	ValidatedAt string   `json:"validated_at" format:"date-time"`
	Passed      bool     `json:"passed"`
	Issues      []string `json:"issues,omitempty"`
}

// WorkDocumentation is one audit-ledger entry for a unit of work.
// Entries are append-only: validation and sign-off extend an entry,
// nothing is ever deleted.
type WorkDocumentation struct {
	ID         string            `json:"id"`
	Timestamp  string            `json:"timestamp" format:"date-time"`
	Time       string            `json:"time,omitempty"`
	Date       string            `json:"date,omitempty"`
	BotName    string            `json:"bot_name"`
	Area       string            `json:"area"`
	Task       string            `json:"task"`
	Result     string            `json:"result"`
	Reflection Reflection        `json:"reflection"`
	Errors     []WorkError       `json:"errors,omitempty"`
	Validation *ValidationRecord `json:"validation,omitempty"`
	SignedBy   *string           `json:"signed_by,omitempty"`
	SignedAt   *string           `json:"signed_at,omitempty" format:"date-time"`
}

// ComplianceViolation is a single rule-match finding against a scanned artifact.
type ComplianceViolation struct {
	Rule       string `json:"rule"`
	Severity   string `json:"severity" enum:"error,warning,info"`
	Message    string `json:"message"`
	Line       int    `json:"line,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ViolationSummary counts violations by severity.
type ViolationSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// ErrorPattern is a deduplicated, occurrence-counted recurring violation.
// Uniqueness key is (pattern, file_path).
type ErrorPattern struct {
	ID          string `json:"id"`
	Agent       string `json:"agent"`
	Type        string `json:"type"`
	Severity    string `json:"severity" enum:"error,warning,info"`
	Pattern     string `json:"pattern"`
	Message     string `json:"message"`
	FilePath    string `json:"file_path,omitempty"`
	LineNumber  int    `json:"line_number,omitempty"`
	Context     string `json:"context,omitempty"`
	Fix         string `json:"fix,omitempty"`
	Occurrences int    `json:"occurrences"`
	FirstSeen   string `json:"first_seen" format:"date-time"`
	LastSeen    string `json:"last_seen" format:"date-time"`
	Fixed       bool   `json:"fixed"`
}

// WorkflowDefinition is the static per-agent workflow configuration.
type WorkflowDefinition struct {
	AgentID         string   `json:"agent_id"`
	Steps           []string `json:"steps"`
	MandatoryChecks []string `json:"mandatory_checks"`
}

// CheckResult is the outcome of one mandatory check for an agent submission.
type CheckResult struct {
	Check      string                `json:"check"`
	Passed     bool                  `json:"passed"`
	Violations []ComplianceViolation `json:"violations,omitempty"`
}

// ReviewDecision is the Approval Authority's verdict on a change request.
type ReviewDecision struct {
	RequestID      string   `json:"request_id"`
	Decision       string   `json:"decision" enum:"approved,rejected,returned"`
	Reasons        []string `json:"reasons,omitempty"`
	NeedsMultiSign bool     `json:"needs_multi_sign"`
	LedgerID       string   `json:"ledger_id"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
