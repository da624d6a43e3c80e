package models

import "time"

// PartType enumerates the meeting programme parts.
type PartType string

const (
	PartScriptureReading PartType = "SCRIPTURE_READING"
	PartTalk             PartType = "TALK"
	PartDemonstration    PartType = "DEMONSTRATION"
	PartMinistry         PartType = "MINISTRY_PART"
	PartOpeningPrayer    PartType = "OPENING_PRAYER"
	PartTreasures        PartType = "TREASURES"
	PartSpiritualGems    PartType = "SPIRITUAL_GEMS"
	PartChristianLiving  PartType = "CHRISTIAN_LIVING"
	PartCongregationBS   PartType = "CONGREGATION_BIBLE_STUDY"
	PartClosingPrayer    PartType = "CLOSING_PRAYER"
)

// NeedsAssistant reports whether the part type is performed with an assistant.
func (t PartType) NeedsAssistant() bool {
	return t == PartDemonstration || t == PartMinistry
}

// WeekLayout is the wire format for week identifiers.
const WeekLayout = "2006-01-02"

// NormalizeWeek truncates a week identifier to a UTC calendar date.
func NormalizeWeek(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseWeek parses a YYYY-MM-DD week identifier.
func ParseWeek(raw string) (time.Time, error) {
	t, err := time.Parse(WeekLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeWeek(t), nil
}

// SameWeek compares two week identifiers by calendar date.
func SameWeek(a, b time.Time) bool {
	return NormalizeWeek(a).Equal(NormalizeWeek(b))
}

// ProgramPart is a single part of the weekly meeting programme.
type ProgramPart struct {
	ID                string    `db:"id" json:"id,omitempty"`
	WeekOf            time.Time `db:"week_of" json:"week_of"`
	Number            int       `db:"part_number" json:"number"`
	Title             string    `db:"title" json:"title"`
	Type              PartType  `db:"part_type" json:"type"`
	DurationMinutes   int       `db:"duration_minutes" json:"duration_minutes"`
	Scene             *string   `db:"scene" json:"scene,omitempty"`
	RequiresAssistant bool      `db:"requires_assistant" json:"requires_assistant"`
	GenderRestriction *Gender   `db:"gender_restriction" json:"gender_restriction,omitempty"`
}

// NeedsAssistant reports whether the part is performed with an assistant.
// Demonstration and ministry parts always are.
func (p ProgramPart) NeedsAssistant() bool {
	return p.RequiresAssistant || p.Type.NeedsAssistant()
}

// Assignment binds a student (and optional assistant) to a programme part.
type Assignment struct {
	ID              string    `db:"id" json:"id,omitempty"`
	StudentID       string    `db:"student_id" json:"student_id"`
	AssistantID     *string   `db:"assistant_id" json:"assistant_id,omitempty"`
	PartNumber      int       `db:"part_number" json:"part_number"`
	PartTitle       string    `db:"part_title" json:"part_title"`
	PartType        PartType  `db:"part_type" json:"part_type"`
	Scene           *string   `db:"scene" json:"scene,omitempty"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	WeekOf          time.Time `db:"week_of" json:"week_of"`
	Confirmed       bool      `db:"confirmed" json:"confirmed"`
	CreatedAt       time.Time `db:"created_at" json:"created_at,omitempty"`
}

// HasAssistant reports whether an assistant id is present.
func (a Assignment) HasAssistant() bool {
	return a.AssistantID != nil && *a.AssistantID != ""
}

// Participants returns the main student followed by the assistant when set.
func (a Assignment) Participants() []string {
	if a.HasAssistant() {
		return []string{a.StudentID, *a.AssistantID}
	}
	return []string{a.StudentID}
}

// HistoryEntry is one past assignment of a student, as main or assistant.
type HistoryEntry struct {
	StudentID   string    `db:"student_id" json:"student_id"`
	WeekOf      time.Time `db:"week_of" json:"week_of"`
	PartNumber  int       `db:"part_number" json:"part_number"`
	PartType    PartType  `db:"part_type" json:"part_type"`
	AsAssistant bool      `db:"as_assistant" json:"as_assistant"`
}

// AssignmentHistory carries the rolling 8-week counters of a student.
type AssignmentHistory struct {
	StudentID             string         `json:"student_id"`
	Recent                []HistoryEntry `json:"recent,omitempty"`
	AssignmentsLast8Weeks int            `json:"assignments_last_8_weeks"`
	LastAssignment        *time.Time     `json:"last_assignment,omitempty"`
}

// EightWeekWindow is the trailing fairness window.
const EightWeekWindow = 56 * 24 * time.Hour

// BuildHistories aggregates raw entries into per-student histories relative to week.
// Entries on or after week are ignored; only the trailing 8 weeks are counted.
func BuildHistories(entries []HistoryEntry, week time.Time) map[string]AssignmentHistory {
	week = NormalizeWeek(week)
	cutoff := week.Add(-EightWeekWindow)
	result := make(map[string]AssignmentHistory)
	for _, entry := range entries {
		entryWeek := NormalizeWeek(entry.WeekOf)
		if !entryWeek.Before(week) || entryWeek.Before(cutoff) {
			continue
		}
		entry.WeekOf = entryWeek
		history := result[entry.StudentID]
		history.StudentID = entry.StudentID
		history.Recent = append(history.Recent, entry)
		history.AssignmentsLast8Weeks++
		if history.LastAssignment == nil || entryWeek.After(*history.LastAssignment) {
			last := entryWeek
			history.LastAssignment = &last
		}
		result[entry.StudentID] = history
	}
	return result
}
