package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/meeting-assignments-api/internal/dto"
	"github.com/noah-isme/meeting-assignments-api/internal/models"
	"github.com/noah-isme/meeting-assignments-api/pkg/export"
)

// Supported roster export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

var rosterHeaders = []string{"Part", "Title", "Type", "Minutes", "Student", "Assistant", "Confirmed"}

// ExportService renders week rosters into downloadable documents.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("Meeting assignments")
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger}
}

// Roster renders the assignments of one week in the requested format.
func (s *ExportService) Roster(week time.Time, views []dto.AssignmentView, format string) (*dto.ExportDocument, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	dataset := buildRosterDataset(week, views)

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("roster exported",
		zap.String("week_of", week.Format(models.WeekLayout)),
		zap.String("format", format),
		zap.Int("rows", len(views)),
		zap.Int("bytes", len(payload)),
	)
	return &dto.ExportDocument{
		Filename:    buildFilename(week, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func buildRosterDataset(week time.Time, views []dto.AssignmentView) export.Dataset {
	rows := make([]map[string]string, 0, len(views))
	for _, view := range views {
		confirmed := "no"
		if view.Confirmed {
			confirmed = "yes"
		}
		rows = append(rows, map[string]string{
			"Part":      strconv.Itoa(view.PartNumber),
			"Title":     view.PartTitle,
			"Type":      humanizePartType(view.PartType),
			"Minutes":   minutesLabel(view.DurationMinutes),
			"Student":   view.StudentName,
			"Assistant": view.AssistantName,
			"Confirmed": confirmed,
		})
	}
	return export.Dataset{
		Title:    "Meeting Assignments",
		Subtitle: "Week of " + week.Format("January 2, 2006"),
		Headers:  rosterHeaders,
		Widths:   []float64{1, 5, 3, 1.2, 3.5, 3.5, 1.5},
		Rows:     rows,
	}
}

func humanizePartType(t models.PartType) string {
	words := strings.Split(strings.ToLower(string(t)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func minutesLabel(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	return strconv.Itoa(minutes)
}

func buildFilename(week time.Time, format string) string {
	return fmt.Sprintf("assignments_%s.%s", week.Format("20060102"), format)
}
