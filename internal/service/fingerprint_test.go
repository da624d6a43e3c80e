package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/meeting-assignments-api/internal/engine"
	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

func fingerprintInputs() generationInputs {
	week := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	students := []models.Student{
		{ID: "a", Gender: models.GenderMale, Role: models.RoleElder, Active: true},
		{ID: "b", Gender: models.GenderFemale, Role: models.RoleBaptizedPublisher, Active: true},
	}
	quals := map[string]models.Qualifications{}
	for _, s := range students {
		quals[s.ID] = models.DefaultQualifications(s)
	}
	return generationInputs{
		Input:   engine.Input{Students: students, Qualifications: quals},
		Links:   []models.FamilyLink{{StudentID: "a", RelatedID: "b"}},
		History: []models.HistoryEntry{{StudentID: "a", WeekOf: week.AddDate(0, 0, -7), PartNumber: 3}},
		Parts:   []models.ProgramPart{{Number: 3, Type: models.PartScriptureReading}, {Number: 4, Type: models.PartDemonstration}},
		Options: engine.Options{WeekOf: week, ExcludedStudentIDs: []string{"x", "y"}},
	}
}

func TestFingerprintIgnoresOrdering(t *testing.T) {
	base := fingerprintInputs()
	reordered := fingerprintInputs()
	reordered.Input.Students[0], reordered.Input.Students[1] = reordered.Input.Students[1], reordered.Input.Students[0]
	reordered.Links[0] = models.FamilyLink{StudentID: "b", RelatedID: "a"}
	reordered.Parts[0], reordered.Parts[1] = reordered.Parts[1], reordered.Parts[0]
	reordered.Options.ExcludedStudentIDs = []string{"y", "x"}

	assert.Equal(t, fingerprint(base), fingerprint(reordered))
	assert.Len(t, fingerprint(base), 16)
}

func TestFingerprintDetectsChanges(t *testing.T) {
	base := fingerprint(fingerprintInputs())

	inactive := fingerprintInputs()
	inactive.Input.Students[1].Active = false
	assert.NotEqual(t, base, fingerprint(inactive))

	bonus := fingerprintInputs()
	bonus.Options.IgnoreFamilyBonus = true
	assert.NotEqual(t, base, fingerprint(bonus))

	history := fingerprintInputs()
	history.History = append(history.History, models.HistoryEntry{StudentID: "b", WeekOf: history.Options.WeekOf.AddDate(0, 0, -14)})
	assert.NotEqual(t, base, fingerprint(history))

	quals := fingerprintInputs()
	q := quals.Input.Qualifications["b"]
	q.Assistant = false
	quals.Input.Qualifications["b"] = q
	assert.NotEqual(t, base, fingerprint(quals))
}
