package models

// Severity classifies validation findings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// RuleCategory groups catalog rules.
type RuleCategory string

const (
	CategoryQualification RuleCategory = "qualification"
	CategoryPairing       RuleCategory = "pairing"
	CategoryScheduling    RuleCategory = "scheduling"
	CategoryDistribution  RuleCategory = "distribution"
)

// Finding is a single rule outcome emitted by the validator.
type Finding struct {
	RuleID     string         `json:"rule_id"`
	Field      string         `json:"field"`
	Message    string         `json:"message"`
	Severity   Severity       `json:"severity"`
	Suggestion string         `json:"suggestion,omitempty"`
	StudentID  string         `json:"student_id,omitempty"`
	PartNumber int            `json:"part_number,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// ConflictType classifies derived conflicts.
type ConflictType string

const (
	ConflictIneligibility    ConflictType = "ineligibility"
	ConflictOverload         ConflictType = "overload"
	ConflictInvalidPairing   ConflictType = "invalid_pairing"
	ConflictMissingAssistant ConflictType = "missing_assistant"
)

// Conflict describes an actionable problem with an assignment.
type Conflict struct {
	Type        ConflictType `json:"type"`
	StudentID   string       `json:"student_id"`
	PartNumber  int          `json:"part_number"`
	Description string       `json:"description"`
	Suggestion  string       `json:"suggestion,omitempty"`
}

// Statistics aggregates distribution metrics over an assignment set.
type Statistics struct {
	TotalAssignments   int                `json:"total_assignments"`
	GenderDistribution map[Gender]int     `json:"gender_distribution"`
	RoleDistribution   map[MemberRole]int `json:"role_distribution"`
	WithAssistant      int                `json:"with_assistant"`
	PairsFormed        int                `json:"pairs_formed"`
	FamilyPairs        int                `json:"family_pairs"`
}
