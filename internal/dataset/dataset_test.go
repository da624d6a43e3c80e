package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/meeting-assignments-api/internal/engine"
	"github.com/noah-isme/meeting-assignments-api/internal/models"
	"github.com/noah-isme/meeting-assignments-api/internal/policy"
)

const sample = `
week: 2025-03-03
members:
  - id: b1
    name: Brother One
    gender: MALE
    role: ELDER
  - id: s1
    name: Sister One
    gender: FEMALE
    role: BAPTIZED_PUBLISHER
    family_group: one
  - id: s2
    name: Sister Two
    gender: FEMALE
    role: REGULAR_PIONEER
  - id: b2
    name: Brother Away
    gender: MALE
    role: BAPTIZED_PUBLISHER
    active: false
qualifications:
  - student: s2
    demonstration: true
    assistant: true
    initial_call: true
family:
  - a: b1
    b: s1
    relation: spouse
history:
  - student: b1
    week: 2025-02-24
    part: 3
    type: SCRIPTURE_READING
  - student: s1
    week: 2024-11-04
    part: 4
    type: DEMONSTRATION
parts:
  - number: 4
    title: Starting a conversation
    type: DEMONSTRATION
    minutes: 3
  - number: 3
    title: Bible reading
    type: SCRIPTURE_READING
    minutes: 4
    gender: MALE
`

func TestParseConvertsDataset(t *testing.T) {
	ds, err := Parse([]byte(sample))
	require.NoError(t, err)
	week, err := models.ParseWeek(ds.Week)
	require.NoError(t, err)

	students := ds.Students()
	require.Len(t, students, 4)
	assert.True(t, students[0].Active)
	assert.False(t, students[3].Active)
	require.NotNil(t, students[1].FamilyGroup)
	assert.Equal(t, "one", *students[1].FamilyGroup)

	quals := ds.QualificationMap()
	assert.True(t, quals["b1"].ScriptureReading)
	assert.False(t, quals["s2"].ReturnVisit)
	assert.True(t, quals["s2"].Demonstration)

	assert.True(t, ds.FamilyGraph().AreRelated("s1", "b1"))

	histories := ds.Histories(week)
	assert.Equal(t, 1, histories["b1"].AssignmentsLast8Weeks)
	_, ok := histories["s1"]
	assert.False(t, ok, "entries outside the eight week window are dropped")

	parts := ds.ProgramParts(week)
	require.Len(t, parts, 2)
	assert.Equal(t, 3, parts[0].Number)
	require.NotNil(t, parts[0].GenderRestriction)
	assert.True(t, parts[1].RequiresAssistant)
	assert.Equal(t, week, parts[1].WeekOf)
}

func TestDatasetDrivesEngineAndValidator(t *testing.T) {
	ds, err := Parse([]byte(sample))
	require.NoError(t, err)
	week, _ := models.ParseWeek(ds.Week)

	result := engine.GenerateAssignments(ds.EngineInput(week), engine.Options{WeekOf: week}, ds.ProgramParts(week), nil)
	require.True(t, result.Success, result.Errors)
	require.Len(t, result.Assignments, 2)

	validation := policy.ValidateAssignments(result.Assignments, ds.PolicyContext(week))
	assert.Empty(t, validation.Errors)
}

func TestPlacementsCarryAssistant(t *testing.T) {
	ds, err := Parse([]byte(`
members:
  - {id: s1, gender: FEMALE, role: BAPTIZED_PUBLISHER}
  - {id: s2, gender: FEMALE, role: BAPTIZED_PUBLISHER}
parts: []
assignments:
  - {student: s1, assistant: s2, part: 4, type: DEMONSTRATION}
`))
	require.NoError(t, err)
	week, _ := models.ParseWeek("2025-03-03")

	placed := ds.Placements(week)
	require.Len(t, placed, 1)
	require.True(t, placed[0].HasAssistant())
	assert.Equal(t, "s2", *placed[0].AssistantID)
	assert.Equal(t, week, placed[0].WeekOf)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":            ``,
		"unknown key":      "members: []\nparts: []\ncolour: blue\n",
		"bad gender":       "members:\n  - {id: a, gender: OTHER, role: ELDER}\nparts: []\n",
		"duplicate member": "members:\n  - {id: a, gender: MALE, role: ELDER}\n  - {id: a, gender: MALE, role: ELDER}\nparts: []\n",
		"unknown family":   "members:\n  - {id: a, gender: MALE, role: ELDER}\nfamily:\n  - {a: a, b: z}\nparts: []\n",
		"self link":        "members:\n  - {id: a, gender: MALE, role: ELDER}\nfamily:\n  - {a: a, b: a}\nparts: []\n",
		"duplicate part":   "members: []\nparts:\n  - {number: 3, title: x, type: TALK}\n  - {number: 3, title: y, type: TALK}\n",
		"bad history week": "members:\n  - {id: a, gender: MALE, role: ELDER}\nhistory:\n  - {student: a, week: 03/03/2025, part: 3}\nparts: []\n",
		"optional demo assistant": "members: []\nparts:\n  - {number: 4, title: x, type: DEMONSTRATION, requires_assistant: false}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "week.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, ds.Members, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
