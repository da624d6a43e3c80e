// Package dataset reads offline congregation datasets used by the
// assignments CLI. A dataset is one YAML document holding members,
// qualifications, family links, assignment history and the meeting parts.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/meeting-assignments-api/internal/engine"
	"github.com/noah-isme/meeting-assignments-api/internal/models"
	"github.com/noah-isme/meeting-assignments-api/internal/policy"
)

// Member is one congregation member.
type Member struct {
	ID          string `yaml:"id" validate:"required"`
	Name        string `yaml:"name"`
	Gender      string `yaml:"gender" validate:"required,oneof=MALE FEMALE"`
	Role        string `yaml:"role" validate:"required,oneof=ELDER MINISTERIAL_SERVANT REGULAR_PIONEER BAPTIZED_PUBLISHER UNBAPTIZED_PUBLISHER NEW_STUDENT"`
	Active      *bool  `yaml:"active,omitempty"`
	Minor       bool   `yaml:"minor,omitempty"`
	FamilyGroup string `yaml:"family_group,omitempty"`
}

// Qualification overrides the derived defaults of one member.
type Qualification struct {
	Student          string `yaml:"student" validate:"required"`
	ScriptureReading bool   `yaml:"scripture_reading"`
	Talk             bool   `yaml:"talk"`
	InitialCall      bool   `yaml:"initial_call"`
	ReturnVisit      bool   `yaml:"return_visit"`
	BibleStudy       bool   `yaml:"bible_study"`
	Demonstration    bool   `yaml:"demonstration"`
	Assistant        bool   `yaml:"assistant"`
	Mentor           bool   `yaml:"mentor"`
}

// Link relates two members of one family.
type Link struct {
	A        string `yaml:"a" validate:"required"`
	B        string `yaml:"b" validate:"required,nefield=A"`
	Relation string `yaml:"relation,omitempty"`
}

// Past is one historical assignment.
type Past struct {
	Student   string `yaml:"student" validate:"required"`
	Week      string `yaml:"week" validate:"required,datetime=2006-01-02"`
	Part      int    `yaml:"part" validate:"min=0"`
	Type      string `yaml:"type,omitempty"`
	Assistant bool   `yaml:"assistant,omitempty"`
}

// Part is one part of the meeting programme.
type Part struct {
	Number            int    `yaml:"number" validate:"required,min=1"`
	Title             string `yaml:"title" validate:"required"`
	Type              string `yaml:"type" validate:"required"`
	Minutes           int    `yaml:"minutes,omitempty" validate:"min=0"`
	Scene             string `yaml:"scene,omitempty"`
	RequiresAssistant *bool  `yaml:"requires_assistant,omitempty"`
	Gender            string `yaml:"gender,omitempty" validate:"omitempty,oneof=MALE FEMALE"`
}

// Placed is an existing assignment to validate instead of generating.
type Placed struct {
	Student   string `yaml:"student" validate:"required"`
	Assistant string `yaml:"assistant,omitempty"`
	Part      int    `yaml:"part" validate:"required,min=1"`
	Title     string `yaml:"title,omitempty"`
	Type      string `yaml:"type" validate:"required"`
}

// Dataset is the document root.
type Dataset struct {
	Week           string          `yaml:"week,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Members        []Member        `yaml:"members" validate:"dive"`
	Qualifications []Qualification `yaml:"qualifications,omitempty" validate:"dive"`
	Family         []Link          `yaml:"family,omitempty" validate:"dive"`
	History        []Past          `yaml:"history,omitempty" validate:"dive"`
	Parts          []Part          `yaml:"parts" validate:"dive"`
	Assignments    []Placed        `yaml:"assignments,omitempty" validate:"dive"`
}

// Load reads and validates a dataset file.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Parse decodes and validates a dataset held in memory.
func Parse(data []byte) (*Dataset, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one YAML document. Unknown keys are rejected.
func Decode(r io.Reader) (*Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if err := ds.validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (d *Dataset) validate() error {
	if err := validator.New().Struct(d); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}
	ids := make(map[string]bool, len(d.Members))
	for _, m := range d.Members {
		if ids[m.ID] {
			return fmt.Errorf("invalid dataset: duplicate member %q", m.ID)
		}
		ids[m.ID] = true
	}
	for _, q := range d.Qualifications {
		if !ids[q.Student] {
			return fmt.Errorf("invalid dataset: qualifications for unknown member %q", q.Student)
		}
	}
	for _, l := range d.Family {
		if !ids[l.A] || !ids[l.B] {
			return fmt.Errorf("invalid dataset: family link %s-%s names an unknown member", l.A, l.B)
		}
	}
	numbers := make(map[int]bool, len(d.Parts))
	for _, p := range d.Parts {
		if numbers[p.Number] {
			return fmt.Errorf("invalid dataset: duplicate part number %d", p.Number)
		}
		numbers[p.Number] = true
		if p.RequiresAssistant != nil && !*p.RequiresAssistant && models.PartType(p.Type).NeedsAssistant() {
			return fmt.Errorf("invalid dataset: part %d: %s parts always require an assistant", p.Number, p.Type)
		}
	}
	return nil
}

// Students converts members into domain students. Members are active unless stated otherwise.
func (d *Dataset) Students() []models.Student {
	students := make([]models.Student, 0, len(d.Members))
	for _, m := range d.Members {
		active := true
		if m.Active != nil {
			active = *m.Active
		}
		student := models.Student{
			ID:       m.ID,
			FullName: m.Name,
			Gender:   models.Gender(m.Gender),
			Role:     models.MemberRole(m.Role),
			Active:   active,
			Minor:    m.Minor,
		}
		if m.FamilyGroup != "" {
			group := m.FamilyGroup
			student.FamilyGroup = &group
		}
		students = append(students, student)
	}
	return students
}

// QualificationMap returns explicit qualifications merged over role defaults.
func (d *Dataset) QualificationMap() map[string]models.Qualifications {
	result := make(map[string]models.Qualifications, len(d.Members))
	for _, s := range d.Students() {
		result[s.ID] = models.DefaultQualifications(s)
	}
	for _, q := range d.Qualifications {
		result[q.Student] = models.Qualifications{
			StudentID:        q.Student,
			ScriptureReading: q.ScriptureReading,
			Talk:             q.Talk,
			InitialCall:      q.InitialCall,
			ReturnVisit:      q.ReturnVisit,
			BibleStudy:       q.BibleStudy,
			Demonstration:    q.Demonstration,
			Assistant:        q.Assistant,
			Mentor:           q.Mentor,
		}
	}
	return result
}

// FamilyGraph builds the symmetric family lookup.
func (d *Dataset) FamilyGraph() models.FamilyGraph {
	links := make([]models.FamilyLink, 0, len(d.Family))
	for _, l := range d.Family {
		links = append(links, models.FamilyLink{StudentID: l.A, RelatedID: l.B, Relation: l.Relation})
	}
	return models.NewFamilyGraph(links)
}

// Histories aggregates past assignments relative to week.
func (d *Dataset) Histories(week time.Time) map[string]models.AssignmentHistory {
	entries := make([]models.HistoryEntry, 0, len(d.History))
	for _, h := range d.History {
		w, err := models.ParseWeek(h.Week)
		if err != nil {
			continue
		}
		entries = append(entries, models.HistoryEntry{
			StudentID:   h.Student,
			WeekOf:      w,
			PartNumber:  h.Part,
			PartType:    models.PartType(h.Type),
			AsAssistant: h.Assistant,
		})
	}
	return models.BuildHistories(entries, week)
}

// ProgramParts converts parts for week, ordered by number.
func (d *Dataset) ProgramParts(week time.Time) []models.ProgramPart {
	parts := make([]models.ProgramPart, 0, len(d.Parts))
	for _, p := range d.Parts {
		partType := models.PartType(p.Type)
		requires := partType.NeedsAssistant()
		if p.RequiresAssistant != nil {
			requires = *p.RequiresAssistant
		}
		part := models.ProgramPart{
			WeekOf:            week,
			Number:            p.Number,
			Title:             p.Title,
			Type:              partType,
			DurationMinutes:   p.Minutes,
			RequiresAssistant: requires,
		}
		if p.Scene != "" {
			scene := p.Scene
			part.Scene = &scene
		}
		if p.Gender != "" {
			gender := models.Gender(p.Gender)
			part.GenderRestriction = &gender
		}
		parts = append(parts, part)
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Number < parts[j].Number })
	return parts
}

// Placements converts the placed assignments for week.
func (d *Dataset) Placements(week time.Time) []models.Assignment {
	result := make([]models.Assignment, 0, len(d.Assignments))
	for _, p := range d.Assignments {
		assignment := models.Assignment{
			StudentID:  p.Student,
			PartNumber: p.Part,
			PartTitle:  p.Title,
			PartType:   models.PartType(p.Type),
			WeekOf:     week,
		}
		if p.Assistant != "" {
			assistant := p.Assistant
			assignment.AssistantID = &assistant
		}
		result = append(result, assignment)
	}
	return result
}

// EngineInput assembles the engine input for week.
func (d *Dataset) EngineInput(week time.Time) engine.Input {
	return engine.Input{
		Students:       d.Students(),
		Qualifications: d.QualificationMap(),
		Histories:      d.Histories(week),
		Family:         d.FamilyGraph(),
	}
}

// PolicyContext assembles the validation context for week.
func (d *Dataset) PolicyContext(week time.Time) policy.Context {
	return policy.Context{
		Students:       models.IndexStudents(d.Students()),
		Qualifications: d.QualificationMap(),
		Family:         d.FamilyGraph(),
		Histories:      d.Histories(week),
		WeekOf:         week,
	}
}
