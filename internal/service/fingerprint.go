package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/noah-isme/meeting-assignments-api/internal/engine"
	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

// generationInputs is everything a generation run depends on. Two runs over
// equal inputs produce equal fingerprints.
type generationInputs struct {
	Input   engine.Input
	Links   []models.FamilyLink
	History []models.HistoryEntry
	Parts   []models.ProgramPart
	Options engine.Options
}

// fingerprint hashes a canonical encoding of the inputs, section by section,
// each section seeded with the hash of the previous one.
func fingerprint(in generationInputs) string {
	var h uint64
	for _, section := range []string{
		encodeStudents(in.Input.Students),
		encodeQualifications(in.Input.Qualifications),
		encodeLinks(in.Links),
		encodeHistory(in.History),
		encodeParts(in.Parts),
		encodeOptions(in.Options),
	} {
		h = xxh3.HashStringSeed(section, h)
	}
	return fmt.Sprintf("%016x", h)
}

func encodeStudents(students []models.Student) string {
	rows := make([]string, 0, len(students))
	for _, s := range students {
		family := ""
		if s.FamilyGroup != nil {
			family = *s.FamilyGroup
		}
		rows = append(rows, strings.Join([]string{
			s.ID, string(s.Gender), string(s.Role),
			strconv.FormatBool(s.Active), strconv.FormatBool(s.Minor), family,
		}, "|"))
	}
	sort.Strings(rows)
	return strings.Join(rows, "\n")
}

func encodeQualifications(quals map[string]models.Qualifications) string {
	rows := make([]string, 0, len(quals))
	for id, q := range quals {
		flags := []bool{q.ScriptureReading, q.Talk, q.InitialCall, q.ReturnVisit, q.BibleStudy, q.Demonstration, q.Assistant, q.Mentor}
		var b strings.Builder
		b.WriteString(id)
		b.WriteByte('|')
		for _, flag := range flags {
			if flag {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		rows = append(rows, b.String())
	}
	sort.Strings(rows)
	return strings.Join(rows, "\n")
}

func encodeLinks(links []models.FamilyLink) string {
	rows := make([]string, 0, len(links))
	for _, link := range links {
		a, b := link.StudentID, link.RelatedID
		if b < a {
			a, b = b, a
		}
		rows = append(rows, a+"|"+b)
	}
	sort.Strings(rows)
	return strings.Join(rows, "\n")
}

func encodeHistory(entries []models.HistoryEntry) string {
	rows := make([]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, fmt.Sprintf("%s|%s|%d|%s|%t",
			e.StudentID, models.NormalizeWeek(e.WeekOf).Format(models.WeekLayout), e.PartNumber, e.PartType, e.AsAssistant))
	}
	sort.Strings(rows)
	return strings.Join(rows, "\n")
}

func encodeParts(parts []models.ProgramPart) string {
	rows := make([]string, 0, len(parts))
	for _, p := range parts {
		restriction := ""
		if p.GenderRestriction != nil {
			restriction = string(*p.GenderRestriction)
		}
		rows = append(rows, fmt.Sprintf("%04d|%s|%s|%t|%s", p.Number, p.Type, p.Title, p.RequiresAssistant, restriction))
	}
	sort.Strings(rows)
	return strings.Join(rows, "\n")
}

func encodeOptions(opts engine.Options) string {
	excluded := append([]string(nil), opts.ExcludedStudentIDs...)
	sort.Strings(excluded)
	return fmt.Sprintf("%s|%s|%t",
		models.NormalizeWeek(opts.WeekOf).Format(models.WeekLayout), strings.Join(excluded, ","), opts.IgnoreFamilyBonus)
}
