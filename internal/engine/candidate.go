package engine

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

const (
	basePriority        = 100
	historyPenalty      = 15
	maxRestBonus        = 56
	activeBonus         = 5
	runSelectionPenalty = 20

	// neverAssignedDays stands in for "days since last assignment" when a
	// student has no recorded history.
	neverAssignedDays = 999
)

// candidate is a student augmented with qualifications, history and a
// derived priority. It only lives for one generation run.
type candidate struct {
	student   models.Student
	quals     models.Qualifications
	history   models.AssignmentHistory
	priority  int
	canAssist bool
	used      bool
}

func (c *candidate) id() string {
	return c.student.ID
}

// candidatePool is the mutable arena backing one run. It is rebuilt from the
// engine's immutable inputs on every Generate call.
type candidatePool struct {
	week   time.Time
	family models.FamilyGraph
	items  []*candidate
	index  map[string]int
}

func newCandidatePool(input Input, opts Options) *candidatePool {
	week := models.NormalizeWeek(opts.WeekOf)
	excluded := make(map[string]struct{}, len(opts.ExcludedStudentIDs))
	for _, id := range opts.ExcludedStudentIDs {
		excluded[id] = struct{}{}
	}

	pool := &candidatePool{
		week:   week,
		family: input.Family,
		items:  make([]*candidate, 0, len(input.Students)),
		index:  make(map[string]int, len(input.Students)),
	}
	for _, student := range input.Students {
		if !student.Active {
			continue
		}
		if _, skip := excluded[student.ID]; skip {
			continue
		}
		if _, dup := pool.index[student.ID]; dup {
			continue
		}
		quals, ok := input.Qualifications[student.ID]
		if !ok {
			quals = models.DefaultQualifications(student)
		}
		history, ok := input.Histories[student.ID]
		if !ok {
			history = models.AssignmentHistory{StudentID: student.ID}
		}
		c := &candidate{
			student:   student,
			quals:     quals,
			history:   history,
			canAssist: student.Active && quals.Assistant,
		}
		c.priority = pool.priorityOf(c)
		pool.index[student.ID] = len(pool.items)
		pool.items = append(pool.items, c)
	}
	// stable iteration order regardless of input ordering
	sort.SliceStable(pool.items, func(i, j int) bool {
		return pool.items[i].id() < pool.items[j].id()
	})
	for i, c := range pool.items {
		pool.index[c.id()] = i
	}
	return pool
}

func (p *candidatePool) get(id string) *candidate {
	idx, ok := p.index[id]
	if !ok {
		return nil
	}
	return p.items[idx]
}

// priorityOf applies the fairness formula: fewer recent assignments and a
// longer rest raise the priority.
func (p *candidatePool) priorityOf(c *candidate) int {
	priority := basePriority
	priority -= c.history.AssignmentsLast8Weeks * historyPenalty
	if c.history.LastAssignment != nil {
		priority += minInt(daysBetween(*c.history.LastAssignment, p.week), maxRestBonus)
	} else {
		priority += maxRestBonus
	}
	if c.student.Active {
		priority += activeBonus
	}
	if priority < 0 {
		return 0
	}
	return priority
}

func (p *candidatePool) daysSinceLast(c *candidate) int {
	if c.history.LastAssignment == nil {
		return neverAssignedDays
	}
	return daysBetween(*c.history.LastAssignment, p.week)
}

// markUsed records a run-local selection. Nothing here is persisted.
func (p *candidatePool) markUsed(c *candidate) {
	if c == nil {
		return
	}
	c.used = true
	c.history.AssignmentsLast8Weeks++
	week := p.week
	c.history.LastAssignment = &week
	c.priority -= runSelectionPenalty
}

func (p *candidatePool) related(a, b *candidate) bool {
	return p.family.AreRelated(a.id(), b.id())
}

func daysBetween(a, b time.Time) int {
	diff := models.NormalizeWeek(b).Sub(models.NormalizeWeek(a))
	return int(math.Ceil(math.Abs(diff.Hours()) / 24))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
