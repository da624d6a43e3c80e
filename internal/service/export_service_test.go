package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/meeting-assignments-api/internal/dto"
	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

func exportViews() []dto.AssignmentView {
	assistant := "s2"
	return []dto.AssignmentView{
		{
			Assignment:  models.Assignment{StudentID: "s1", PartNumber: 3, PartTitle: "Bible reading", PartType: models.PartScriptureReading, DurationMinutes: 4},
			StudentName: "Paul Mendes",
		},
		{
			Assignment:    models.Assignment{StudentID: "s3", AssistantID: &assistant, PartNumber: 4, PartTitle: "Starting a conversation", PartType: models.PartDemonstration, Confirmed: true},
			StudentName:   "Ana Lima",
			AssistantName: "Rita Lima",
		},
	}
}

func TestExportServiceRosterCSV(t *testing.T) {
	svc := NewExportService(nil, nil, nil)
	week := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	doc, err := svc.Roster(week, exportViews(), "CSV")
	require.NoError(t, err)
	assert.Equal(t, "assignments_20250303.csv", doc.Filename)
	assert.Equal(t, "text/csv", doc.ContentType)

	lines := strings.Split(strings.TrimSpace(string(doc.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Part,Title,Type,Minutes,Student,Assistant,Confirmed", lines[0])
	assert.Equal(t, "3,Bible reading,Scripture Reading,4,Paul Mendes,,no", lines[1])
	assert.Equal(t, "4,Starting a conversation,Demonstration,,Ana Lima,Rita Lima,yes", lines[2])
}

func TestExportServiceRosterPDF(t *testing.T) {
	svc := NewExportService(nil, nil, nil)
	doc, err := svc.Roster(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), exportViews(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Payload, []byte("%PDF")))
}

func TestExportServiceRosterDefaultsToCSV(t *testing.T) {
	svc := NewExportService(nil, nil, nil)
	doc, err := svc.Roster(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.ContentType)
}

func TestExportServiceRosterRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(nil, nil, nil)
	_, err := svc.Roster(time.Now(), nil, "xlsx")
	assert.Error(t, err)
}
