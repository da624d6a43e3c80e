// Package engine selects a student, and an assistant where the part needs one,
// for every part of a weekly meeting programme.
//
// Selection is greedy: parts are resolved in a fixed order (scripture reading,
// then talks, then by part number) and each part takes the highest-scoring
// eligible pair. The result is best effort; a part without any eligible pair
// is reported as an error and the run continues.
//
// An Engine keeps run-local mutable state while Generate executes and must
// not be shared between goroutines.
package engine

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
	"github.com/noah-isme/meeting-assignments-api/internal/report"
)

const (
	familyBonus            = 10
	sameGenderBonus        = 5
	recentPenalty          = 5
	assistantRecentPenalty = 3
	overloadPenalty        = 10

	recentWindowDays  = 14
	overloadThreshold = 2
)

// Input holds the immutable data a run draws candidates from.
type Input struct {
	Students       []models.Student
	Qualifications map[string]models.Qualifications
	Histories      map[string]models.AssignmentHistory
	Family         models.FamilyGraph
}

// Options tunes a single run.
type Options struct {
	WeekOf             time.Time
	ExcludedStudentIDs []string
	// IgnoreFamilyBonus disables the scoring bonus for family assistants.
	IgnoreFamilyBonus bool
}

// Result is the outcome of a generation run.
type Result struct {
	Success     bool                `json:"success"`
	Assignments []models.Assignment `json:"assignments"`
	Errors      []string            `json:"errors"`
	Warnings    []string            `json:"warnings"`
	Conflicts   []models.Conflict   `json:"conflicts"`
	Statistics  models.Statistics   `json:"statistics"`
}

// Engine generates assignments for one congregation week.
type Engine struct {
	logger   *zap.Logger
	input    Input
	opts     Options
	students map[string]models.Student
}

// New constructs an engine. A nil logger disables logging.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Initialize stores the inputs and options for subsequent Generate calls.
func (e *Engine) Initialize(input Input, opts Options) {
	e.input = input
	e.opts = opts
	e.students = make(map[string]models.Student, len(input.Students))
	for _, student := range input.Students {
		e.students[student.ID] = student
	}
}

// GenerateAssignments is a one-shot helper building an engine for a single run.
func GenerateAssignments(input Input, opts Options, parts []models.ProgramPart, logger *zap.Logger) *Result {
	e := New(logger)
	e.Initialize(input, opts)
	return e.Generate(parts)
}

// option is one (student, assistant) pairing under consideration for a part.
type option struct {
	main      *candidate
	assistant *candidate
	score     int
	conflicts []string
	warnings  []string
}

// Generate assigns every part it can. The candidate pool is rebuilt from the
// initialized inputs on each call.
func (e *Engine) Generate(parts []models.ProgramPart) *Result {
	result := &Result{
		Assignments: make([]models.Assignment, 0, len(parts)),
		Errors:      make([]string, 0),
		Warnings:    make([]string, 0),
	}
	pool := newCandidatePool(e.input, e.opts)

	for _, part := range sortParts(parts) {
		assignment, warnings := e.assignPart(pool, part)
		if assignment == nil {
			msg := fmt.Sprintf("unable to generate assignment for part %d: %s", part.Number, part.Title)
			result.Errors = append(result.Errors, msg)
			e.logger.Warn("part left unassigned",
				zap.Int("part_number", part.Number),
				zap.String("part_type", string(part.Type)),
				zap.Int("pool_size", len(pool.items)),
			)
			continue
		}
		for _, warning := range warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("part %d: %s", part.Number, warning))
		}
		result.Assignments = append(result.Assignments, *assignment)
	}

	result.Conflicts = report.DetectOverloads(result.Assignments)
	result.Statistics = report.ComputeStatistics(result.Assignments, e.students, e.input.Family)
	result.Success = len(result.Errors) == 0

	e.logger.Debug("assignment generation finished",
		zap.Time("week_of", pool.week),
		zap.Int("parts", len(parts)),
		zap.Int("assigned", len(result.Assignments)),
		zap.Int("failed", len(result.Errors)),
		zap.Int("conflicts", len(result.Conflicts)),
	)
	return result
}

func (e *Engine) assignPart(pool *candidatePool, part models.ProgramPart) (*models.Assignment, []string) {
	options := e.collectOptions(pool, part)
	if len(options) == 0 {
		return nil, nil
	}
	for _, opt := range options {
		e.scoreOption(pool, opt)
	}
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].score != options[j].score {
			return options[i].score > options[j].score
		}
		return options[i].main.id() < options[j].main.id()
	})

	chosen := selectOption(options)
	if chosen == nil {
		return nil, nil
	}

	assignment := &models.Assignment{
		StudentID:       chosen.main.id(),
		PartNumber:      part.Number,
		PartTitle:       part.Title,
		PartType:        part.Type,
		Scene:           part.Scene,
		DurationMinutes: part.DurationMinutes,
		WeekOf:          pool.week,
		Confirmed:       false,
	}
	pool.markUsed(chosen.main)
	if chosen.assistant != nil {
		assistantID := chosen.assistant.id()
		assignment.AssistantID = &assistantID
		pool.markUsed(chosen.assistant)
	}
	return assignment, chosen.warnings
}

// collectOptions filters the pool for part and attaches an assistant when the
// part requires one. Students without a usable assistant are dropped.
func (e *Engine) collectOptions(pool *candidatePool, part models.ProgramPart) []*option {
	options := make([]*option, 0)
	for _, c := range pool.items {
		if c.used || !eligibleFor(c, part) {
			continue
		}
		opt := &option{main: c}
		if part.NeedsAssistant() {
			opt.assistant = pool.findAssistant(c)
			if opt.assistant == nil {
				continue
			}
		}
		options = append(options, opt)
	}
	return options
}

func (e *Engine) scoreOption(pool *candidatePool, opt *option) {
	score := opt.main.priority
	var conflicts, warnings []string

	if opt.assistant != nil {
		if !e.opts.IgnoreFamilyBonus && pool.related(opt.main, opt.assistant) {
			score += familyBonus
		}
		if opt.main.student.Gender == opt.assistant.student.Gender {
			score += sameGenderBonus
		}
		if opt.assistant.used || opt.assistant.id() == opt.main.id() || !pool.validPairing(opt.main, opt.assistant) {
			conflicts = append(conflicts, "invalid assistant pairing")
		}
	}
	if opt.main.used {
		conflicts = append(conflicts, "student already assigned this week")
	}

	if days := pool.daysSinceLast(opt.main); days < recentWindowDays {
		warnings = append(warnings, fmt.Sprintf("student %s had an assignment %d days ago", opt.main.id(), days))
		score -= recentPenalty
	}
	if opt.assistant != nil {
		if days := pool.daysSinceLast(opt.assistant); days < recentWindowDays {
			warnings = append(warnings, fmt.Sprintf("assistant %s had an assignment %d days ago", opt.assistant.id(), days))
			score -= assistantRecentPenalty
		}
	}
	if opt.main.history.AssignmentsLast8Weeks > overloadThreshold {
		warnings = append(warnings, fmt.Sprintf("student %s has %d assignments in the last 8 weeks", opt.main.id(), opt.main.history.AssignmentsLast8Weeks))
		score -= overloadPenalty
	}

	opt.score = score
	opt.conflicts = conflicts
	opt.warnings = warnings
}

// selectOption takes options sorted by descending score. A conflict-free option
// wins; warnings never disqualify, so the warnings-only fallback is the same
// scan. Ties keep the ascending student id order established by the sort.
func selectOption(options []*option) *option {
	for _, opt := range options {
		if len(opt.conflicts) == 0 {
			return opt
		}
	}
	return nil
}

// eligibleFor applies the per-part-type eligibility invariants.
func eligibleFor(c *candidate, part models.ProgramPart) bool {
	if !c.student.Active {
		return false
	}
	if part.GenderRestriction != nil && c.student.Gender != *part.GenderRestriction {
		return false
	}
	switch part.Type {
	case models.PartScriptureReading:
		return c.student.IsMale() && c.quals.ScriptureReading
	case models.PartTalk:
		return c.student.IsMale() && c.quals.Talk && c.student.Role.IsTalkQualified()
	case models.PartDemonstration, models.PartMinistry:
		return c.quals.Demonstration
	default:
		return true
	}
}

// sortParts orders scripture reading first, talks second and the remainder by
// part number.
func sortParts(parts []models.ProgramPart) []models.ProgramPart {
	sorted := make([]models.ProgramPart, len(parts))
	copy(sorted, parts)
	rank := func(t models.PartType) int {
		switch t {
		case models.PartScriptureReading:
			return 0
		case models.PartTalk:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := rank(sorted[i].Type), rank(sorted[j].Type)
		if ri != rj {
			return ri < rj
		}
		return sorted[i].Number < sorted[j].Number
	})
	return sorted
}
