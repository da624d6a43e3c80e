package policy

import (
	"fmt"
	"sort"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

// Catalog rule identifiers.
const (
	RuleStudentActive         = "student_must_be_active"
	RuleBibleReadingMenOnly   = "bible_reading_men_only"
	RuleTalksQualifiedMenOnly = "talks_qualified_men_only"
	RuleStudentQualified      = "student_must_have_qualification"

	RuleAssistantActive     = "assistant_must_be_active"
	RuleAssistantQualified  = "assistant_must_be_qualified"
	RuleMissingAssistant    = "missing_required_assistant"
	RuleAssistantNotSelf    = "assistant_not_main_student"
	RuleFamilyMixedGender   = "family_member_different_gender"
	RuleMinorsSameGender    = "minors_same_gender_only"
	RuleSameGenderPreferred = "same_gender_assistants"

	RuleNoDuplicate        = "no_duplicate_assignments"
	RuleRecentAssignment   = "recent_assignment_warning"
	RuleNoConsecutiveWeeks = "no_consecutive_weeks"

	RuleOverloaded           = "overloaded_student"
	RuleBalancedDistribution = "balanced_distribution"
	RuleUnderutilized        = "underutilized_student"
)

// Data-integrity findings. They are not policy rules and are not listed in the catalog.
const (
	FindingStudentNotFound        = "student_not_found"
	FindingQualificationsNotFound = "qualifications_not_found"
	FindingAssistantNotFound      = "assistant_not_found"
)

// Rule is one entry of the fixed policy catalog.
type Rule struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Severity    models.Severity     `json:"severity"`
	Category    models.RuleCategory `json:"category"`

	check      func(r Rule, c *assignmentCheck) []models.Finding
	batchCheck func(r Rule, b *batchCheck) []models.Finding
}

func (r Rule) finding(field, message, suggestion, studentID string, partNumber int, ctx map[string]any) models.Finding {
	return models.Finding{
		RuleID:     r.ID,
		Field:      field,
		Message:    message,
		Severity:   r.Severity,
		Suggestion: suggestion,
		StudentID:  studentID,
		PartNumber: partNumber,
		Context:    ctx,
	}
}

var catalog = []Rule{
	// qualification
	{
		ID: RuleStudentActive, Name: "Active Students Only",
		Description: "Only active students can receive assignments",
		Severity:    models.SeverityError, Category: models.CategoryQualification,
		check: checkStudentActive,
	},
	{
		ID: RuleBibleReadingMenOnly, Name: "Bible Reading - Men Only",
		Description: "The Bible reading can only be assigned to men",
		Severity:    models.SeverityError, Category: models.CategoryQualification,
		check: checkBibleReadingMenOnly,
	},
	{
		ID: RuleTalksQualifiedMenOnly, Name: "Talks - Qualified Men Only",
		Description: "Talks can only be assigned to qualified men (elders, ministerial servants, baptized publishers)",
		Severity:    models.SeverityError, Category: models.CategoryQualification,
		check: checkTalksQualifiedMenOnly,
	},
	{
		ID: RuleStudentQualified, Name: "Student Must Be Qualified",
		Description: "Student must have the required qualification for the assignment type",
		Severity:    models.SeverityError, Category: models.CategoryQualification,
		check: checkStudentQualified,
	},
	// pairing
	{
		ID: RuleMissingAssistant, Name: "Assistant Required",
		Description: "Demonstrations and ministry parts require an assistant",
		Severity:    models.SeverityError, Category: models.CategoryPairing,
		check: checkMissingAssistant,
	},
	{
		ID: RuleAssistantNotSelf, Name: "Assistant Differs From Student",
		Description: "A student cannot assist on their own assignment",
		Severity:    models.SeverityError, Category: models.CategoryPairing,
		check: checkAssistantNotSelf,
	},
	{
		ID: RuleAssistantActive, Name: "Assistant Must Be Active",
		Description: "Assistants must be active students",
		Severity:    models.SeverityError, Category: models.CategoryPairing,
		check: checkAssistantActive,
	},
	{
		ID: RuleAssistantQualified, Name: "Assistant Must Be Qualified",
		Description: "Assistant must be qualified to help with the assignment type",
		Severity:    models.SeverityError, Category: models.CategoryPairing,
		check: checkAssistantQualified,
	},
	{
		ID: RuleFamilyMixedGender, Name: "Family Member Different Gender",
		Description: "Different gender pairs must be family members",
		Severity:    models.SeverityError, Category: models.CategoryPairing,
		check: checkFamilyMixedGender,
	},
	{
		ID: RuleMinorsSameGender, Name: "Minors Same Gender Only",
		Description: "Minors must have same-gender assistants unless they are family members",
		Severity:    models.SeverityError, Category: models.CategoryPairing,
		check: checkMinorsSameGender,
	},
	{
		ID: RuleSameGenderPreferred, Name: "Same Gender Assistants",
		Description: "Assistants should be the same gender as the main student",
		Severity:    models.SeverityWarning, Category: models.CategoryPairing,
		check: checkSameGenderPreferred,
	},
	// scheduling
	{
		ID: RuleNoDuplicate, Name: "No Duplicate Assignments",
		Description: "Students cannot have multiple assignments in the same week",
		Severity:    models.SeverityError, Category: models.CategoryScheduling,
		check: checkNoDuplicate, batchCheck: checkBatchDuplicates,
	},
	{
		ID: RuleNoConsecutiveWeeks, Name: "No Consecutive Weeks",
		Description: "Students should not have assignments in consecutive weeks",
		Severity:    models.SeverityWarning, Category: models.CategoryScheduling,
		check: checkConsecutiveWeeks,
	},
	{
		ID: RuleRecentAssignment, Name: "Recent Assignment Warning",
		Description: "Student had an assignment within the last 2 weeks",
		Severity:    models.SeverityWarning, Category: models.CategoryScheduling,
		check: checkRecentAssignment,
	},
	// distribution
	{
		ID: RuleOverloaded, Name: "Overloaded Student",
		Description: "Student has too many assignments in recent weeks",
		Severity:    models.SeverityWarning, Category: models.CategoryDistribution,
		check: checkOverloaded,
	},
	{
		ID: RuleBalancedDistribution, Name: "Balanced Distribution",
		Description: "Assignments should be distributed fairly among qualified students",
		Severity:    models.SeverityInfo, Category: models.CategoryDistribution,
		check: checkBalancedDistribution, batchCheck: checkBatchSpread,
	},
	{
		ID: RuleUnderutilized, Name: "Underutilized Student",
		Description: "Qualified student has not received assignments recently",
		Severity:    models.SeverityInfo, Category: models.CategoryDistribution,
		batchCheck: checkUnderutilized,
	},
}

// Rules returns a copy of the full catalog.
func Rules() []Rule {
	out := make([]Rule, len(catalog))
	copy(out, catalog)
	return out
}

// RulesByCategory returns the catalog entries of one category.
func RulesByCategory(category models.RuleCategory) []Rule {
	out := make([]Rule, 0)
	for _, rule := range catalog {
		if rule.Category == category {
			out = append(out, rule)
		}
	}
	return out
}

// RuleByID looks up a catalog entry.
func RuleByID(id string) (Rule, bool) {
	for _, rule := range catalog {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}

// --- qualification ---

func checkStudentActive(r Rule, c *assignmentCheck) []models.Finding {
	if c.student.Active {
		return nil
	}
	return []models.Finding{r.finding("active", "inactive students cannot receive assignments",
		"activate the student or choose a different student", c.student.ID, c.assignment.PartNumber, nil)}
}

func checkBibleReadingMenOnly(r Rule, c *assignmentCheck) []models.Finding {
	if c.assignment.PartType != models.PartScriptureReading || c.student.IsMale() {
		return nil
	}
	return []models.Finding{r.finding("gender", "the Bible reading can only be assigned to men",
		"choose a male student for this assignment", c.student.ID, c.assignment.PartNumber, nil)}
}

func checkTalksQualifiedMenOnly(r Rule, c *assignmentCheck) []models.Finding {
	if c.assignment.PartType != models.PartTalk {
		return nil
	}
	var out []models.Finding
	if !c.student.IsMale() {
		out = append(out, r.finding("gender", "talks can only be assigned to men",
			"choose a qualified male student for this talk", c.student.ID, c.assignment.PartNumber, nil))
	}
	if !c.quals.Talk || !c.student.Role.IsTalkQualified() {
		out = append(out, r.finding("qualifications", "student is not qualified to give talks",
			"choose an elder, ministerial servant, or baptized publisher", c.student.ID, c.assignment.PartNumber,
			map[string]any{"role": c.student.Role}))
	}
	return out
}

func checkStudentQualified(r Rule, c *assignmentCheck) []models.Finding {
	switch c.assignment.PartType {
	case models.PartScriptureReading:
		if !c.quals.ScriptureReading {
			return []models.Finding{r.finding("qualifications", "student is not qualified for the Bible reading",
				"update student qualifications or choose a qualified student", c.student.ID, c.assignment.PartNumber, nil)}
		}
	case models.PartDemonstration, models.PartMinistry:
		if !c.quals.Demonstration {
			return []models.Finding{r.finding("qualifications", "student is not qualified for demonstrations",
				"update student qualifications or choose a qualified student", c.student.ID, c.assignment.PartNumber, nil)}
		}
	}
	return nil
}

// --- pairing ---

func checkMissingAssistant(r Rule, c *assignmentCheck) []models.Finding {
	if c.assignment.HasAssistant() || !c.assignment.PartType.NeedsAssistant() {
		return nil
	}
	return []models.Finding{r.finding("assistant_id", "this assignment type requires an assistant",
		"assign a qualified assistant for this demonstration or ministry part", c.student.ID, c.assignment.PartNumber, nil)}
}

func checkAssistantNotSelf(r Rule, c *assignmentCheck) []models.Finding {
	if !c.assignment.HasAssistant() || *c.assignment.AssistantID != c.assignment.StudentID {
		return nil
	}
	return []models.Finding{r.finding("assistant_id", "student cannot be their own assistant",
		"choose a different student as assistant", c.student.ID, c.assignment.PartNumber, nil)}
}

func checkAssistantActive(r Rule, c *assignmentCheck) []models.Finding {
	if !c.hasPair() || c.assistant.Active {
		return nil
	}
	return []models.Finding{r.finding("assistant_active", "assistant must be active",
		"choose an active assistant", c.assistant.ID, c.assignment.PartNumber, nil)}
}

func checkAssistantQualified(r Rule, c *assignmentCheck) []models.Finding {
	if !c.hasPair() || c.assistantQuals.Assistant {
		return nil
	}
	return []models.Finding{r.finding("assistant_qualifications", "assistant is not qualified to help",
		"choose a qualified assistant", c.assistant.ID, c.assignment.PartNumber, nil)}
}

func checkFamilyMixedGender(r Rule, c *assignmentCheck) []models.Finding {
	if !c.hasPair() || c.sameGender() || c.related() {
		return nil
	}
	return []models.Finding{r.finding("assistant_gender", "different gender pairs must be family members",
		"choose a same-gender assistant or a family member", c.student.ID, c.assignment.PartNumber, c.pairContext())}
}

func checkMinorsSameGender(r Rule, c *assignmentCheck) []models.Finding {
	if !c.hasPair() || !c.student.Minor || c.sameGender() || c.related() {
		return nil
	}
	ctx := c.pairContext()
	ctx["is_minor"] = true
	return []models.Finding{r.finding("assistant_gender", "minors must have same-gender assistants unless they are family members",
		"choose a same-gender assistant or a family member", c.student.ID, c.assignment.PartNumber, ctx)}
}

func checkSameGenderPreferred(r Rule, c *assignmentCheck) []models.Finding {
	if !c.hasPair() || c.sameGender() || !c.related() {
		return nil
	}
	return []models.Finding{r.finding("assistant_gender", "same-gender assistants are preferred when possible",
		"consider a same-gender assistant if available", c.student.ID, c.assignment.PartNumber, c.pairContext())}
}

// --- scheduling ---

func checkNoDuplicate(r Rule, c *assignmentCheck) []models.Finding {
	participants := c.assignment.Participants()
	parts := make([]int, 0)
	for _, existing := range c.ctx.ExistingAssignments {
		if !models.SameWeek(existing.WeekOf, c.week) || existing.PartNumber == c.assignment.PartNumber {
			continue
		}
		if sharesParticipant(participants, existing.Participants()) {
			parts = append(parts, existing.PartNumber)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return []models.Finding{r.finding("scheduling", "student already has an assignment this week",
		"choose a different student or reschedule to another week", c.student.ID, c.assignment.PartNumber,
		map[string]any{"existing_parts": parts, "week_of": c.week.Format(models.WeekLayout)})}
}

func checkConsecutiveWeeks(r Rule, c *assignmentCheck) []models.Finding {
	last, ok := c.lastAssignmentBefore()
	if !ok {
		return nil
	}
	days := daysBetween(last, c.week)
	if days > consecutiveWeekDays {
		return nil
	}
	return []models.Finding{r.finding("scheduling", fmt.Sprintf("student had an assignment %d days ago", days),
		"consider giving other students opportunities first", c.student.ID, c.assignment.PartNumber,
		map[string]any{"last_assignment": last.Format(models.WeekLayout), "days_since": days})}
}

func checkRecentAssignment(r Rule, c *assignmentCheck) []models.Finding {
	last, ok := c.lastAssignmentBefore()
	if !ok {
		return nil
	}
	days := daysBetween(last, c.week)
	if days <= consecutiveWeekDays || days >= recentWindowDays {
		return nil
	}
	return []models.Finding{r.finding("scheduling", fmt.Sprintf("student had an assignment %d days ago", days),
		"consider if other students need opportunities", c.student.ID, c.assignment.PartNumber,
		map[string]any{"last_assignment": last.Format(models.WeekLayout), "days_since": days})}
}

// --- distribution ---

func checkOverloaded(r Rule, c *assignmentCheck) []models.Finding {
	count := c.trailingCount()
	if count < overloadThreshold {
		return nil
	}
	return []models.Finding{r.finding("distribution", fmt.Sprintf("student has %d assignments in the last 8 weeks", count),
		"consider distributing assignments more evenly", c.student.ID, c.assignment.PartNumber,
		map[string]any{"recent_assignment_count": count, "period": "8 weeks"})}
}

func checkBalancedDistribution(r Rule, c *assignmentCheck) []models.Finding {
	count := c.trailingCount()
	return []models.Finding{r.finding("distribution", fmt.Sprintf("student has %d assignments in the last 8 weeks", count),
		"", c.student.ID, c.assignment.PartNumber,
		map[string]any{"recent_assignment_count": count, "period": "8 weeks"})}
}

// --- batch ---

func checkBatchDuplicates(r Rule, b *batchCheck) []models.Finding {
	out := make([]models.Finding, 0)
	for _, bucket := range b.buckets() {
		if len(bucket.assignments) <= 1 {
			continue
		}
		parts := make([]int, 0, len(bucket.assignments))
		for _, assignment := range bucket.assignments {
			parts = append(parts, assignment.PartNumber)
		}
		week := bucket.week.Format(models.WeekLayout)
		out = append(out, r.finding("cross_assignment",
			fmt.Sprintf("student has %d assignments in week %s", len(bucket.assignments), week),
			"redistribute assignments to avoid overloading students", bucket.studentID, parts[0],
			map[string]any{"assignment_count": len(bucket.assignments), "week_of": week, "parts": parts}))
	}
	return out
}

func checkBatchSpread(r Rule, b *batchCheck) []models.Finding {
	minCount, maxCount, ok := b.spread()
	if !ok {
		return nil
	}
	suggestion := ""
	if maxCount-minCount > 1 {
		suggestion = "consider balancing assignments more evenly"
	}
	return []models.Finding{r.finding("distribution",
		fmt.Sprintf("assignment distribution varies from %d to %d per student", minCount, maxCount),
		suggestion, "", 0,
		map[string]any{"min_assignments": minCount, "max_assignments": maxCount, "spread": maxCount - minCount, "total_students": len(b.counts)})}
}

func checkUnderutilized(r Rule, b *batchCheck) []models.Finding {
	ids := make([]string, 0, len(b.ctx.Students))
	for id := range b.ctx.Students {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.Finding, 0)
	for _, id := range ids {
		student := b.ctx.Students[id]
		if !student.Active || b.counts[id] > 0 {
			continue
		}
		if trailingCount(b.ctx.Histories[id], b.week) > 0 {
			continue
		}
		out = append(out, r.finding("distribution", "student has no assignments in the last 8 weeks",
			"consider this student for an upcoming assignment", id, 0,
			map[string]any{"period": "8 weeks"}))
	}
	return out
}

func sharesParticipant(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
