package dto

import (
	"time"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
	"github.com/noah-isme/meeting-assignments-api/internal/policy"
)

// ProgramPartRequest overrides the stored programme for a generation run.
type ProgramPartRequest struct {
	Number            int     `json:"number" validate:"required,min=1"`
	Title             string  `json:"title" validate:"required"`
	Type              string  `json:"type" validate:"required,oneof=SCRIPTURE_READING TALK DEMONSTRATION MINISTRY_PART OPENING_PRAYER TREASURES SPIRITUAL_GEMS CHRISTIAN_LIVING CONGREGATION_BIBLE_STUDY CLOSING_PRAYER"`
	DurationMinutes   int     `json:"durationMinutes" validate:"omitempty,min=1,max=60"`
	Scene             *string `json:"scene"`
	RequiresAssistant *bool   `json:"requiresAssistant"`
	GenderRestriction string  `json:"genderRestriction" validate:"omitempty,oneof=MALE FEMALE"`
}

// GenerateAssignmentsRequest asks the engine for a week proposal.
type GenerateAssignmentsRequest struct {
	WeekOf             string               `json:"weekOf" validate:"required,datetime=2006-01-02"`
	Parts              []ProgramPartRequest `json:"parts" validate:"omitempty,dive"`
	ExcludedStudentIDs []string             `json:"excludedStudentIds" validate:"omitempty,dive,required"`
	PreferFamilyPairs  *bool                `json:"preferFamilyPairs"`
	Validate           *bool                `json:"validate"`
}

// GenerateAssignmentsResponse returns a stored proposal.
type GenerateAssignmentsResponse struct {
	ProposalID  string              `json:"proposalId"`
	WeekOf      string              `json:"weekOf"`
	Success     bool                `json:"success"`
	Assignments []models.Assignment `json:"assignments"`
	Errors      []string            `json:"errors"`
	Warnings    []string            `json:"warnings"`
	Conflicts   []models.Conflict   `json:"conflicts"`
	Statistics  models.Statistics   `json:"statistics"`
	Validation  *policy.Result      `json:"validation,omitempty"`
	ExpiresAt   time.Time           `json:"expiresAt"`
}

// SaveAssignmentsRequest persists a proposal, replacing the week's assignments.
type SaveAssignmentsRequest struct {
	ProposalID   string `json:"proposalId" validate:"required"`
	AllowPartial bool   `json:"allowPartial"`
	Confirm      bool   `json:"confirm"`
}

// SaveAssignmentsResponse summarises a saved week.
type SaveAssignmentsResponse struct {
	WeekOf string `json:"weekOf"`
	Saved  int    `json:"saved"`
	Score  int    `json:"score"`
}

// AssignmentInput is a client-supplied assignment to validate.
type AssignmentInput struct {
	StudentID   string  `json:"studentId" validate:"required"`
	AssistantID *string `json:"assistantId"`
	PartNumber  int     `json:"partNumber" validate:"required,min=1"`
	PartTitle   string  `json:"partTitle"`
	PartType    string  `json:"partType" validate:"required"`
}

// ValidateAssignmentsRequest validates the given assignments, or the saved ones
// of the week when none are given.
type ValidateAssignmentsRequest struct {
	WeekOf      string            `json:"weekOf" validate:"required,datetime=2006-01-02"`
	Assignments []AssignmentInput `json:"assignments" validate:"omitempty,dive"`
}

// AssignmentsQuery filters saved assignments.
type AssignmentsQuery struct {
	WeekOf string `form:"weekOf" json:"weekOf"`
}

// RulesQuery filters the rule catalog.
type RulesQuery struct {
	Category string `form:"category" json:"category"`
}

// ExportQuery selects the week and document format of an export.
type ExportQuery struct {
	WeekOf string `form:"weekOf" json:"weekOf"`
	Format string `form:"format" json:"format"`
}

// AssignmentView is a saved assignment with member names resolved.
type AssignmentView struct {
	models.Assignment
	StudentName   string `json:"studentName"`
	AssistantName string `json:"assistantName,omitempty"`
}

// ExportDocument is a rendered export.
type ExportDocument struct {
	Filename    string
	ContentType string
	Payload     []byte
}
