package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

var testWeek = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func TestValidateAssignmentRejectsFemaleReader(t *testing.T) {
	ctx := newContext(
		student("elder", models.GenderMale, models.RoleElder),
		student("sister", models.GenderFemale, models.RoleBaptizedPublisher),
	)

	result := ValidateAssignment(reading("sister"), ctx)

	assert.False(t, result.IsValid)
	assert.Contains(t, ruleIDs(result.Errors), RuleBibleReadingMenOnly)
	require.NotEmpty(t, result.Conflicts)
	assert.Equal(t, models.ConflictIneligibility, result.Conflicts[0].Type)

	ok := ValidateAssignment(reading("elder"), ctx)
	assert.True(t, ok.IsValid)
	assert.Equal(t, 100, ok.Score)
}

func TestValidateAssignmentFamilyMixedGenderPair(t *testing.T) {
	ctx := newContext(
		student("father", models.GenderMale, models.RoleBaptizedPublisher),
		student("mother", models.GenderFemale, models.RoleBaptizedPublisher),
	)
	ctx.Family = models.NewFamilyGraph([]models.FamilyLink{{StudentID: "father", RelatedID: "mother", Relation: "spouse"}})

	result := ValidateAssignment(demo("father", "mother"), ctx)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, RuleSameGenderPreferred, result.Warnings[0].RuleID)
	assert.Equal(t, 95, result.Score)
}

func TestValidateAssignmentMixedGenderOutsideFamily(t *testing.T) {
	ctx := newContext(
		student("brother", models.GenderMale, models.RoleBaptizedPublisher),
		student("sister", models.GenderFemale, models.RoleBaptizedPublisher),
	)

	result := ValidateAssignment(demo("brother", "sister"), ctx)

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{RuleFamilyMixedGender}, ruleIDs(result.Errors))
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictInvalidPairing, result.Conflicts[0].Type)
}

func TestValidateAssignmentMinorNeedsSameGender(t *testing.T) {
	minor := student("minor", models.GenderFemale, models.RoleUnbaptizedPublisher)
	minor.Minor = true
	ctx := newContext(minor, student("brother", models.GenderMale, models.RoleElder))

	result := ValidateAssignment(demo("minor", "brother"), ctx)

	assert.False(t, result.IsValid)
	assert.ElementsMatch(t, []string{RuleFamilyMixedGender, RuleMinorsSameGender}, ruleIDs(result.Errors))
}

func TestValidateAssignmentFlagsOverloadedStudent(t *testing.T) {
	ctx := newContext(student("busy", models.GenderMale, models.RoleElder))
	ctx.Histories["busy"] = history("busy", -21, -28, -35)

	result := ValidateAssignment(reading("busy"), ctx)

	assert.True(t, result.IsValid)
	assert.Equal(t, []string{RuleOverloaded}, ruleIDs(result.Warnings))
	assert.LessOrEqual(t, result.Score, 95)
}

func TestValidateAssignmentRecency(t *testing.T) {
	ctx := newContext(
		student("last-week", models.GenderMale, models.RoleElder),
		student("two-weeks", models.GenderMale, models.RoleElder),
		student("rested", models.GenderMale, models.RoleElder),
	)
	ctx.Histories["last-week"] = history("last-week", -7)
	ctx.Histories["two-weeks"] = history("two-weeks", -10)
	ctx.Histories["rested"] = history("rested", -14)

	assert.Equal(t, []string{RuleNoConsecutiveWeeks}, ruleIDs(ValidateAssignment(reading("last-week"), ctx).Warnings))
	assert.Equal(t, []string{RuleRecentAssignment}, ruleIDs(ValidateAssignment(reading("two-weeks"), ctx).Warnings))
	assert.Empty(t, ValidateAssignment(reading("rested"), ctx).Warnings)
}

func TestValidateAssignmentRecencyBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		offset int
		want   []string
	}{
		{name: "six days", offset: -6, want: []string{RuleNoConsecutiveWeeks}},
		{name: "exactly seven days", offset: -7, want: []string{RuleNoConsecutiveWeeks}},
		{name: "eight days", offset: -8, want: []string{RuleRecentAssignment}},
		{name: "thirteen days", offset: -13, want: []string{RuleRecentAssignment}},
		{name: "exactly fourteen days", offset: -14, want: []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := newContext(student("elder", models.GenderMale, models.RoleElder))
			ctx.Histories["elder"] = history("elder", tc.offset)

			result := ValidateAssignment(reading("elder"), ctx)

			assert.True(t, result.IsValid)
			assert.Equal(t, tc.want, ruleIDs(result.Warnings))
		})
	}
}

func TestValidateAssignmentRejectsSelfAssistant(t *testing.T) {
	ctx := newContext(student("sister", models.GenderFemale, models.RoleBaptizedPublisher))

	result := ValidateAssignment(demo("sister", "sister"), ctx)

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{RuleAssistantNotSelf}, ruleIDs(result.Errors))
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictInvalidPairing, result.Conflicts[0].Type)
	assert.Equal(t, "sister", result.Conflicts[0].StudentID)

	rule, ok := RuleByID(RuleAssistantNotSelf)
	require.True(t, ok)
	assert.Equal(t, models.CategoryPairing, rule.Category)
}

func TestValidateAssignmentIgnoresSameWeekHistory(t *testing.T) {
	ctx := newContext(student("elder", models.GenderMale, models.RoleElder))
	ctx.Histories["elder"] = history("elder", 0)

	result := ValidateAssignment(reading("elder"), ctx)

	assert.Empty(t, result.Warnings)
}

func TestValidateAssignmentMissingStudentShortCircuits(t *testing.T) {
	ctx := newContext()

	result := ValidateAssignment(reading("ghost"), ctx)

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{FindingStudentNotFound}, ruleIDs(result.Errors))
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 80, result.Score)
}

func TestValidateAssignmentMissingQualificationsShortCircuits(t *testing.T) {
	ctx := newContext(student("elder", models.GenderMale, models.RoleElder))
	delete(ctx.Qualifications, "elder")

	result := ValidateAssignment(reading("elder"), ctx)

	assert.Equal(t, []string{FindingQualificationsNotFound}, ruleIDs(result.Errors))
}

func TestValidateAssignmentUnknownAssistant(t *testing.T) {
	ctx := newContext(student("sister", models.GenderFemale, models.RoleBaptizedPublisher))

	result := ValidateAssignment(demo("sister", "ghost"), ctx)

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{FindingAssistantNotFound}, ruleIDs(result.Errors))
	assert.Equal(t, models.ConflictInvalidPairing, result.Conflicts[0].Type)
}

func TestValidateAssignmentRequiresAssistant(t *testing.T) {
	ctx := newContext(student("sister", models.GenderFemale, models.RoleBaptizedPublisher))
	assignment := demo("sister", "")
	assignment.AssistantID = nil

	result := ValidateAssignment(assignment, ctx)

	assert.Equal(t, []string{RuleMissingAssistant}, ruleIDs(result.Errors))
	assert.Equal(t, models.ConflictMissingAssistant, result.Conflicts[0].Type)
}

func TestValidateAssignmentTalkNeedsQualifiedRole(t *testing.T) {
	ctx := newContext(student("new", models.GenderMale, models.RoleUnbaptizedPublisher))
	ctx.Qualifications["new"] = models.Qualifications{StudentID: "new", Talk: true}

	result := ValidateAssignment(models.Assignment{StudentID: "new", PartNumber: 4, PartType: models.PartTalk, WeekOf: testWeek}, ctx)

	assert.Equal(t, []string{RuleTalksQualifiedMenOnly}, ruleIDs(result.Errors))
}

func TestValidateAssignmentInactiveAssistant(t *testing.T) {
	helper := student("helper", models.GenderFemale, models.RoleBaptizedPublisher)
	helper.Active = false
	ctx := newContext(student("sister", models.GenderFemale, models.RoleBaptizedPublisher), helper)

	result := ValidateAssignment(demo("sister", "helper"), ctx)

	assert.Equal(t, []string{RuleAssistantActive}, ruleIDs(result.Errors))
}

func TestValidateAssignmentAgainstExistingBookings(t *testing.T) {
	ctx := newContext(student("elder", models.GenderMale, models.RoleElder))
	ctx.ExistingAssignments = []models.Assignment{{StudentID: "elder", PartNumber: 7, PartType: models.PartTalk, WeekOf: testWeek}}

	result := ValidateAssignment(reading("elder"), ctx)

	assert.Equal(t, []string{RuleNoDuplicate}, ruleIDs(result.Errors))
	assert.Equal(t, models.ConflictOverload, result.Conflicts[0].Type)
}

func TestValidateAssignmentsDetectsBatchDuplicates(t *testing.T) {
	ctx := newContext(
		student("elder", models.GenderMale, models.RoleElder),
		student("sister-a", models.GenderFemale, models.RoleBaptizedPublisher),
		student("sister-b", models.GenderFemale, models.RoleBaptizedPublisher),
	)
	talk := models.Assignment{StudentID: "elder", PartNumber: 7, PartType: models.PartTalk, WeekOf: testWeek}

	result := ValidateAssignments([]models.Assignment{reading("elder"), talk, demo("sister-a", "sister-b")}, ctx)

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	dup := result.Errors[0]
	assert.Equal(t, RuleNoDuplicate, dup.RuleID)
	assert.Equal(t, "elder", dup.StudentID)
	assert.Equal(t, []int{3, 7}, dup.Context["parts"])
	assert.Equal(t, 80, result.Score)

	var spread *models.Finding
	for i := range result.Infos {
		if result.Infos[i].RuleID == RuleBalancedDistribution && result.Infos[i].StudentID == "" {
			spread = &result.Infos[i]
		}
	}
	require.NotNil(t, spread)
	assert.Equal(t, 1, spread.Context["min_assignments"])
	assert.Equal(t, 2, spread.Context["max_assignments"])
}

func TestValidateAssignmentsReportsUnderutilizedStudents(t *testing.T) {
	ctx := newContext(
		student("elder", models.GenderMale, models.RoleElder),
		student("idle", models.GenderMale, models.RoleElder),
		student("recent", models.GenderMale, models.RoleElder),
	)
	ctx.Histories["recent"] = history("recent", -21)

	result := ValidateAssignments([]models.Assignment{reading("elder")}, ctx)

	underused := make([]string, 0)
	for _, info := range result.Infos {
		if info.RuleID == RuleUnderutilized {
			underused = append(underused, info.StudentID)
		}
	}
	assert.Equal(t, []string{"idle"}, underused)
}

func TestValidateAssignmentsIsIdempotent(t *testing.T) {
	ctx := newContext(
		student("elder", models.GenderMale, models.RoleElder),
		student("sister", models.GenderFemale, models.RoleBaptizedPublisher),
		student("other", models.GenderFemale, models.RoleBaptizedPublisher),
	)
	ctx.Histories["sister"] = history("sister", -7, -14, -21)
	batch := []models.Assignment{reading("sister"), demo("sister", "other"), reading("elder")}
	v := NewValidator(ctx)

	first := v.ValidateAssignments(batch)
	second := v.ValidateAssignments(batch)

	assert.Equal(t, first.Errors, second.Errors)
	assert.Equal(t, first.Warnings, second.Warnings)
	assert.Equal(t, first.Infos, second.Infos)
	assert.Equal(t, first.Score, second.Score)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100, Score(0, 0))
	assert.Equal(t, 80, Score(1, 0))
	assert.Equal(t, 95, Score(0, 1))
	assert.Equal(t, 75, Score(1, 1))
	assert.Equal(t, 0, Score(6, 0))
	for errs := 0; errs < 4; errs++ {
		assert.Equal(t, Score(errs, 0)-20, Score(errs+1, 0))
	}
	for warns := 0; warns < 10; warns++ {
		assert.Equal(t, Score(0, warns)-5, Score(0, warns+1))
	}
}

func TestRuleCatalog(t *testing.T) {
	rules := Rules()
	seen := map[string]bool{}
	for _, rule := range rules {
		assert.False(t, seen[rule.ID], "duplicate rule %s", rule.ID)
		seen[rule.ID] = true
		assert.NotEmpty(t, rule.Name)
		assert.NotEmpty(t, rule.Category)
	}

	total := 0
	for _, category := range []models.RuleCategory{
		models.CategoryQualification, models.CategoryPairing, models.CategoryScheduling, models.CategoryDistribution,
	} {
		byCategory := RulesByCategory(category)
		assert.NotEmpty(t, byCategory)
		total += len(byCategory)
	}
	assert.Equal(t, len(rules), total)

	rule, ok := RuleByID(RuleOverloaded)
	require.True(t, ok)
	assert.Equal(t, models.SeverityWarning, rule.Severity)
	_, ok = RuleByID("unknown")
	assert.False(t, ok)
}

// --- Fixtures ---

func newContext(students ...models.Student) Context {
	ctx := Context{
		Students:       map[string]models.Student{},
		Qualifications: map[string]models.Qualifications{},
		Family:         models.FamilyGraph{},
		Histories:      map[string]models.AssignmentHistory{},
		WeekOf:         testWeek,
	}
	for _, s := range students {
		ctx.Students[s.ID] = s
		ctx.Qualifications[s.ID] = models.DefaultQualifications(s)
	}
	return ctx
}

func student(id string, gender models.Gender, role models.MemberRole) models.Student {
	return models.Student{ID: id, FullName: id, Gender: gender, Role: role, Active: true}
}

func history(id string, offsets ...int) models.AssignmentHistory {
	entries := make([]models.HistoryEntry, 0, len(offsets))
	for _, offset := range offsets {
		entries = append(entries, models.HistoryEntry{StudentID: id, WeekOf: testWeek.AddDate(0, 0, offset), PartNumber: 3})
	}
	return models.AssignmentHistory{StudentID: id, Recent: entries}
}

func reading(id string) models.Assignment {
	return models.Assignment{StudentID: id, PartNumber: 3, PartTitle: "Bible Reading", PartType: models.PartScriptureReading, WeekOf: testWeek}
}

func demo(id, assistantID string) models.Assignment {
	return models.Assignment{StudentID: id, AssistantID: &assistantID, PartNumber: 5, PartTitle: "Starting a Conversation", PartType: models.PartDemonstration, WeekOf: testWeek}
}

func ruleIDs(findings []models.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.RuleID)
	}
	return out
}
