// Package policy checks proposed or persisted assignments against the fixed
// rule catalog and grades the outcome.
//
// Findings are classified as errors, warnings, or infos. Only errors make an
// assignment invalid; warnings lower the score. The validator never mutates
// the assignments or the context it is given.
package policy

import (
	"fmt"
	"math"
	"time"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
	"github.com/noah-isme/meeting-assignments-api/internal/report"
)

const (
	consecutiveWeekDays = 7
	recentWindowDays    = 14
	overloadThreshold   = 3

	errorWeight   = 20
	warningWeight = 5
	maxScore      = 100
)

// Context is the read-only data a validation run resolves ids against.
type Context struct {
	Students       map[string]models.Student
	Qualifications map[string]models.Qualifications
	Family         models.FamilyGraph
	Histories      map[string]models.AssignmentHistory
	// WeekOf is the reference week for assignments that carry none.
	WeekOf              time.Time
	ExistingAssignments []models.Assignment
}

// Result is the graded outcome of a validation.
type Result struct {
	IsValid   bool              `json:"is_valid"`
	Errors    []models.Finding  `json:"errors"`
	Warnings  []models.Finding  `json:"warnings"`
	Infos     []models.Finding  `json:"infos"`
	Conflicts []models.Conflict `json:"conflicts"`
	Score     int               `json:"score"`
}

// ViolationError carries a failed validation result through error returns.
type ViolationError struct {
	Result *Result
}

func (e *ViolationError) Error() string {
	if e == nil || e.Result == nil {
		return "assignments violate policy"
	}
	return fmt.Sprintf("assignments violate policy: %d error(s), score %d", len(e.Result.Errors), e.Result.Score)
}

// Score grades a result: 100 minus 20 per error and 5 per warning, clamped to [0,100].
func Score(errors, warnings int) int {
	score := maxScore - errorWeight*errors - warningWeight*warnings
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// Validator runs the catalog against one context.
type Validator struct {
	ctx   Context
	rules []Rule
}

// NewValidator binds a validator to ctx.
func NewValidator(ctx Context) *Validator {
	return &Validator{ctx: ctx, rules: catalog}
}

// ValidateAssignment is a one-shot helper for a single assignment.
func ValidateAssignment(assignment models.Assignment, ctx Context) *Result {
	return NewValidator(ctx).ValidateAssignment(assignment)
}

// ValidateAssignments is a one-shot helper for a batch.
func ValidateAssignments(assignments []models.Assignment, ctx Context) *Result {
	return NewValidator(ctx).ValidateAssignments(assignments)
}

// ValidateAssignment checks one assignment. Missing student or qualification
// data short-circuits with a single error.
func (v *Validator) ValidateAssignment(assignment models.Assignment) *Result {
	acc := newAccumulator()
	acc.addAll(v.checkAssignment(assignment))
	return acc.result()
}

// ValidateAssignments checks each assignment, then applies the batch-level
// duplicate and distribution checks.
func (v *Validator) ValidateAssignments(assignments []models.Assignment) *Result {
	acc := newAccumulator()
	for _, assignment := range assignments {
		acc.addAll(v.checkAssignment(assignment))
	}

	batch := &batchCheck{ctx: &v.ctx, week: models.NormalizeWeek(v.ctx.WeekOf), assignments: assignments}
	if batch.week.IsZero() && len(assignments) > 0 {
		batch.week = models.NormalizeWeek(assignments[0].WeekOf)
	}
	batch.counts = report.ParticipantCounts(assignments)
	for _, rule := range v.rules {
		if rule.batchCheck == nil {
			continue
		}
		acc.addAll(rule.batchCheck(rule, batch))
	}
	return acc.result()
}

func (v *Validator) checkAssignment(assignment models.Assignment) []models.Finding {
	student, ok := v.ctx.Students[assignment.StudentID]
	if !ok {
		return []models.Finding{integrityFinding(FindingStudentNotFound, "student_id", "student not found",
			"verify the student exists", assignment.StudentID, assignment.PartNumber)}
	}
	quals, ok := v.ctx.Qualifications[assignment.StudentID]
	if !ok {
		return []models.Finding{integrityFinding(FindingQualificationsNotFound, "qualifications", "student qualifications not found",
			"set up qualifications for the student", assignment.StudentID, assignment.PartNumber)}
	}

	week := assignment.WeekOf
	if week.IsZero() {
		week = v.ctx.WeekOf
	}
	check := &assignmentCheck{
		assignment: assignment,
		student:    student,
		quals:      quals,
		ctx:        &v.ctx,
		week:       models.NormalizeWeek(week),
	}

	findings := make([]models.Finding, 0)
	if assignment.HasAssistant() {
		assistant, foundStudent := v.ctx.Students[*assignment.AssistantID]
		assistantQuals, foundQuals := v.ctx.Qualifications[*assignment.AssistantID]
		switch {
		case !foundStudent:
			findings = append(findings, integrityFinding(FindingAssistantNotFound, "assistant_id", "assistant not found",
				"verify the assistant exists", *assignment.AssistantID, assignment.PartNumber))
		case !foundQuals:
			findings = append(findings, integrityFinding(FindingQualificationsNotFound, "assistant_qualifications", "assistant qualifications not found",
				"set up qualifications for the assistant", *assignment.AssistantID, assignment.PartNumber))
		default:
			check.assistant = &assistant
			check.assistantQuals = &assistantQuals
		}
	}

	for _, rule := range v.rules {
		if rule.check == nil {
			continue
		}
		findings = append(findings, rule.check(rule, check)...)
	}
	return findings
}

func integrityFinding(id, field, message, suggestion, studentID string, partNumber int) models.Finding {
	return models.Finding{
		RuleID:     id,
		Field:      field,
		Message:    message,
		Severity:   models.SeverityError,
		Suggestion: suggestion,
		StudentID:  studentID,
		PartNumber: partNumber,
	}
}

// assignmentCheck is the resolved view of one assignment handed to rule checks.
type assignmentCheck struct {
	assignment     models.Assignment
	student        models.Student
	quals          models.Qualifications
	assistant      *models.Student
	assistantQuals *models.Qualifications
	ctx            *Context
	week           time.Time
}

func (c *assignmentCheck) hasPair() bool {
	return c.assistant != nil && c.assistantQuals != nil
}

func (c *assignmentCheck) sameGender() bool {
	return c.assistant != nil && c.assistant.Gender == c.student.Gender
}

func (c *assignmentCheck) related() bool {
	return c.assistant != nil && c.ctx.Family.AreRelated(c.student.ID, c.assistant.ID)
}

func (c *assignmentCheck) pairContext() map[string]any {
	return map[string]any{
		"student_gender":   c.student.Gender,
		"assistant_gender": c.assistant.Gender,
		"assistant_id":     c.assistant.ID,
	}
}

// lastAssignmentBefore returns the most recent assignment strictly before the
// checked week.
func (c *assignmentCheck) lastAssignmentBefore() (time.Time, bool) {
	history, ok := c.ctx.Histories[c.student.ID]
	if !ok {
		return time.Time{}, false
	}
	var last time.Time
	found := false
	for _, entry := range history.Recent {
		entryWeek := models.NormalizeWeek(entry.WeekOf)
		if !entryWeek.Before(c.week) {
			continue
		}
		if !found || entryWeek.After(last) {
			last, found = entryWeek, true
		}
	}
	if found {
		return last, true
	}
	if len(history.Recent) == 0 && history.LastAssignment != nil {
		lastWeek := models.NormalizeWeek(*history.LastAssignment)
		if lastWeek.Before(c.week) {
			return lastWeek, true
		}
	}
	return time.Time{}, false
}

func (c *assignmentCheck) trailingCount() int {
	return trailingCount(c.ctx.Histories[c.student.ID], c.week)
}

// trailingCount counts entries in the 8 weeks before week. Histories without
// entries fall back to their precomputed counter.
func trailingCount(history models.AssignmentHistory, week time.Time) int {
	if len(history.Recent) == 0 {
		return history.AssignmentsLast8Weeks
	}
	week = models.NormalizeWeek(week)
	cutoff := week.Add(-models.EightWeekWindow)
	count := 0
	for _, entry := range history.Recent {
		entryWeek := models.NormalizeWeek(entry.WeekOf)
		if entryWeek.Before(week) && !entryWeek.Before(cutoff) {
			count++
		}
	}
	return count
}

// batchCheck is the view handed to batch-level rule checks.
type batchCheck struct {
	ctx         *Context
	week        time.Time
	assignments []models.Assignment
	counts      map[string]int
}

type bookingBucket struct {
	studentID   string
	week        time.Time
	assignments []models.Assignment
}

// buckets groups assignments by participant and week in first-seen order.
func (b *batchCheck) buckets() []*bookingBucket {
	type key struct {
		id   string
		week time.Time
	}
	index := make(map[key]*bookingBucket)
	order := make([]*bookingBucket, 0)
	for _, assignment := range b.assignments {
		week := models.NormalizeWeek(assignment.WeekOf)
		for _, id := range assignment.Participants() {
			k := key{id: id, week: week}
			bucket, ok := index[k]
			if !ok {
				bucket = &bookingBucket{studentID: id, week: week}
				index[k] = bucket
				order = append(order, bucket)
			}
			bucket.assignments = append(bucket.assignments, assignment)
		}
	}
	return order
}

func (b *batchCheck) spread() (int, int, bool) {
	return report.Spread(b.counts)
}

// accumulator sorts findings by severity and derives conflicts from errors.
type accumulator struct {
	errors    []models.Finding
	warnings  []models.Finding
	infos     []models.Finding
	conflicts []models.Conflict
}

func newAccumulator() *accumulator {
	return &accumulator{
		errors:    make([]models.Finding, 0),
		warnings:  make([]models.Finding, 0),
		infos:     make([]models.Finding, 0),
		conflicts: make([]models.Conflict, 0),
	}
}

func (a *accumulator) addAll(findings []models.Finding) {
	for _, finding := range findings {
		switch finding.Severity {
		case models.SeverityError:
			a.errors = append(a.errors, finding)
			a.conflicts = append(a.conflicts, conflictFor(finding))
		case models.SeverityWarning:
			a.warnings = append(a.warnings, finding)
		default:
			a.infos = append(a.infos, finding)
		}
	}
}

func (a *accumulator) result() *Result {
	return &Result{
		IsValid:   len(a.errors) == 0,
		Errors:    a.errors,
		Warnings:  a.warnings,
		Infos:     a.infos,
		Conflicts: a.conflicts,
		Score:     Score(len(a.errors), len(a.warnings)),
	}
}

func conflictFor(finding models.Finding) models.Conflict {
	return models.Conflict{
		Type:        conflictTypeFor(finding.RuleID),
		StudentID:   finding.StudentID,
		PartNumber:  finding.PartNumber,
		Description: finding.Message,
		Suggestion:  finding.Suggestion,
	}
}

func conflictTypeFor(ruleID string) models.ConflictType {
	switch ruleID {
	case RuleMissingAssistant:
		return models.ConflictMissingAssistant
	case FindingAssistantNotFound:
		return models.ConflictInvalidPairing
	}
	rule, ok := RuleByID(ruleID)
	if !ok {
		return models.ConflictIneligibility
	}
	switch rule.Category {
	case models.CategoryPairing:
		return models.ConflictInvalidPairing
	case models.CategoryScheduling:
		return models.ConflictOverload
	default:
		return models.ConflictIneligibility
	}
}

func daysBetween(a, b time.Time) int {
	diff := models.NormalizeWeek(b).Sub(models.NormalizeWeek(a))
	return int(math.Ceil(math.Abs(diff.Hours()) / 24))
}
