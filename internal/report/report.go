// Package report aggregates duplicate bookings and distribution metrics over
// assignment sets. It is shared by the generation engine and the validator.
package report

import (
	"fmt"
	"time"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

type participantKey struct {
	StudentID string
	Week      time.Time
}

// DetectOverloads returns one overload conflict per participant booked more than
// once in the same week, as main student or assistant.
func DetectOverloads(assignments []models.Assignment) []models.Conflict {
	buckets := make(map[participantKey][]models.Assignment)
	order := make([]participantKey, 0)
	for _, assignment := range assignments {
		for _, id := range assignment.Participants() {
			key := participantKey{StudentID: id, Week: models.NormalizeWeek(assignment.WeekOf)}
			if _, ok := buckets[key]; !ok {
				order = append(order, key)
			}
			buckets[key] = append(buckets[key], assignment)
		}
	}

	conflicts := make([]models.Conflict, 0)
	for _, key := range order {
		booked := buckets[key]
		if len(booked) <= 1 {
			continue
		}
		conflicts = append(conflicts, models.Conflict{
			Type:        models.ConflictOverload,
			StudentID:   key.StudentID,
			PartNumber:  booked[0].PartNumber,
			Description: fmt.Sprintf("student has %d assignments in the same week", len(booked)),
			Suggestion:  "redistribute assignments to other weeks",
		})
	}
	return conflicts
}

// ComputeStatistics counts gender and role distribution among main students and
// pairing figures. Assignments whose main student is unknown are counted in the
// total only.
func ComputeStatistics(assignments []models.Assignment, students map[string]models.Student, family models.FamilyGraph) models.Statistics {
	stats := models.Statistics{
		TotalAssignments: len(assignments),
		GenderDistribution: map[models.Gender]int{
			models.GenderMale:   0,
			models.GenderFemale: 0,
		},
		RoleDistribution: make(map[models.MemberRole]int),
	}
	for _, assignment := range assignments {
		student, ok := students[assignment.StudentID]
		if !ok {
			continue
		}
		stats.GenderDistribution[student.Gender]++
		role := student.Role
		if role == "" {
			role = "UNKNOWN"
		}
		stats.RoleDistribution[role]++

		if assignment.HasAssistant() {
			stats.WithAssistant++
			stats.PairsFormed++
			if family.AreRelated(assignment.StudentID, *assignment.AssistantID) {
				stats.FamilyPairs++
			}
		}
	}
	return stats
}

// ParticipantCounts counts how many assignments each participant holds.
func ParticipantCounts(assignments []models.Assignment) map[string]int {
	counts := make(map[string]int)
	for _, assignment := range assignments {
		for _, id := range assignment.Participants() {
			counts[id]++
		}
	}
	return counts
}

// Spread returns the minimum and maximum of the per-participant counts.
// ok is false when counts is empty.
func Spread(counts map[string]int) (minCount, maxCount int, ok bool) {
	if len(counts) == 0 {
		return 0, 0, false
	}
	first := true
	for _, count := range counts {
		if first || count < minCount {
			minCount = count
		}
		if first || count > maxCount {
			maxCount = count
		}
		first = false
	}
	return minCount, maxCount, true
}
