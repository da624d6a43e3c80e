package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/meeting-assignments-api/internal/dto"
	"github.com/noah-isme/meeting-assignments-api/internal/engine"
	"github.com/noah-isme/meeting-assignments-api/internal/models"
	"github.com/noah-isme/meeting-assignments-api/internal/policy"
	appErrors "github.com/noah-isme/meeting-assignments-api/pkg/errors"
)

type memberReader interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type qualificationReader interface {
	ListAll(ctx context.Context) ([]models.Qualifications, error)
}

type familyReader interface {
	ListLinks(ctx context.Context) ([]models.FamilyLink, error)
}

type programReader interface {
	ListPartsByWeek(ctx context.Context, week time.Time) ([]models.ProgramPart, error)
}

type assignmentStore interface {
	ListByWeek(ctx context.Context, week time.Time) ([]models.Assignment, error)
	ListHistorySince(ctx context.Context, since time.Time) ([]models.HistoryEntry, error)
	DeleteByWeek(ctx context.Context, exec sqlx.ExtContext, week time.Time) error
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, items []models.Assignment) error
}

type rosterExporter interface {
	Roster(week time.Time, views []dto.AssignmentView, format string) (*dto.ExportDocument, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// AssignmentServiceConfig governs generation defaults.
type AssignmentServiceConfig struct {
	ProposalTTL        time.Duration
	HistoryWeeks       int
	PreferFamilyPairs  bool
	ValidateOnGenerate bool
	// CacheProposals keeps proposals in the cache service when it is enabled.
	CacheProposals bool
}

// AssignmentService generates, validates and persists weekly meeting assignments.
type AssignmentService struct {
	students    memberReader
	quals       qualificationReader
	family      familyReader
	programs    programReader
	assignments assignmentStore
	exporter    rosterExporter
	tx          txProvider
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	store       proposalStore
	cfg         AssignmentServiceConfig
}

// NewAssignmentService wires assignment dependencies.
func NewAssignmentService(
	students memberReader,
	quals qualificationReader,
	family familyReader,
	programs programReader,
	assignments assignmentStore,
	exporter rosterExporter,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AssignmentServiceConfig,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.HistoryWeeks <= 0 {
		cfg.HistoryWeeks = 8
	}
	if exporter == nil {
		exporter = NewExportService(logger, nil, nil)
	}
	var store proposalStore = newMemoryProposalStore(cfg.ProposalTTL)
	if cfg.CacheProposals && cache.Enabled() {
		store = newCacheProposalStore(cache, cfg.ProposalTTL)
	}
	return &AssignmentService{
		students:    students,
		quals:       quals,
		family:      family,
		programs:    programs,
		assignments: assignments,
		exporter:    exporter,
		tx:          tx,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		store:       store,
		cfg:         cfg,
	}
}

// Generate runs the engine for a week and stores the outcome as a proposal.
func (s *AssignmentService) Generate(ctx context.Context, req dto.GenerateAssignmentsRequest) (*dto.GenerateAssignmentsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment generation payload")
	}
	week, err := models.ParseWeek(req.WeekOf)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "weekOf must use YYYY-MM-DD")
	}

	parts, err := s.resolveParts(ctx, week, req.Parts)
	if err != nil {
		return nil, err
	}
	inputs, err := s.loadInputs(ctx, week)
	if err != nil {
		return nil, err
	}

	preferFamily := s.cfg.PreferFamilyPairs
	if req.PreferFamilyPairs != nil {
		preferFamily = *req.PreferFamilyPairs
	}
	inputs.Parts = parts
	inputs.Options = engine.Options{
		WeekOf:             week,
		ExcludedStudentIDs: req.ExcludedStudentIDs,
		IgnoreFamilyBonus:  !preferFamily,
	}

	start := time.Now()
	result := engine.GenerateAssignments(inputs.Input, inputs.Options, parts, s.logger)
	s.metrics.ObserveGeneration(result.Success, len(result.Errors), time.Since(start))

	var validation *policy.Result
	validate := s.cfg.ValidateOnGenerate
	if req.Validate != nil {
		validate = *req.Validate
	}
	if validate {
		validation = s.validate(result.Assignments, inputs, week, nil)
	}

	proposal := assignmentProposal{
		ProposalID:         uuid.NewString(),
		WeekOf:             week,
		Fingerprint:        fingerprint(inputs),
		Parts:              parts,
		ExcludedStudentIDs: req.ExcludedStudentIDs,
		IgnoreFamilyBonus:  !preferFamily,
		Result:             *result,
		Validation:         validation,
		RequestedAt:        time.Now().UTC(),
	}
	if err := s.store.Save(ctx, proposal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store assignment proposal")
	}

	s.logger.Info("assignment proposal generated",
		zap.String("proposal_id", proposal.ProposalID),
		zap.String("week_of", req.WeekOf),
		zap.Int("parts", len(parts)),
		zap.Int("assigned", len(result.Assignments)),
		zap.Bool("success", result.Success),
	)

	return &dto.GenerateAssignmentsResponse{
		ProposalID:  proposal.ProposalID,
		WeekOf:      week.Format(models.WeekLayout),
		Success:     result.Success,
		Assignments: result.Assignments,
		Errors:      result.Errors,
		Warnings:    result.Warnings,
		Conflicts:   result.Conflicts,
		Statistics:  result.Statistics,
		Validation:  validation,
		ExpiresAt:   proposal.RequestedAt.Add(s.store.TTL()),
	}, nil
}

// Save replaces the week's assignments with a stored proposal.
func (s *AssignmentService) Save(ctx context.Context, req dto.SaveAssignmentsRequest) (*dto.SaveAssignmentsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save assignments payload")
	}
	proposal, ok, err := s.store.Get(ctx, req.ProposalID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment proposal")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if !proposal.Result.Success && !req.AllowPartial {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal is partial; set allowPartial to save it")
	}
	if len(proposal.Result.Assignments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "proposal has no assignments")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	inputs, err := s.loadInputs(ctx, proposal.WeekOf)
	if err != nil {
		return nil, err
	}
	inputs.Parts = proposal.Parts
	inputs.Options = proposal.options()
	if fingerprint(inputs) != proposal.Fingerprint {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "member data changed since the proposal was generated; generate a new proposal")
	}

	validation := s.validate(proposal.Result.Assignments, inputs, proposal.WeekOf, nil)
	if !validation.IsValid {
		return nil, appErrors.Wrap(&policy.ViolationError{Result: validation}, appErrors.ErrInvalidAssignments.Code, appErrors.ErrInvalidAssignments.Status, appErrors.ErrInvalidAssignments.Message)
	}

	items := make([]models.Assignment, 0, len(proposal.Result.Assignments))
	for _, item := range proposal.Result.Assignments {
		item.WeekOf = proposal.WeekOf
		item.Confirmed = req.Confirm
		items = append(items, item)
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.assignments.DeleteByWeek(ctx, tx, proposal.WeekOf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear week assignments")
	}
	if err = s.assignments.CreateBatch(ctx, tx, items); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist assignments")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignments transaction")
	}

	if deleteErr := s.store.Delete(ctx, proposal.ProposalID); deleteErr != nil {
		s.logger.Warn("failed to drop saved proposal", zap.String("proposal_id", proposal.ProposalID), zap.Error(deleteErr))
	}
	s.logger.Info("assignments saved",
		zap.String("proposal_id", proposal.ProposalID),
		zap.Time("week_of", proposal.WeekOf),
		zap.Int("saved", len(items)),
		zap.Int("score", validation.Score),
	)
	return &dto.SaveAssignmentsResponse{
		WeekOf: proposal.WeekOf.Format(models.WeekLayout),
		Saved:  len(items),
		Score:  validation.Score,
	}, nil
}

// Validate grades client-supplied assignments, or the saved ones of the week when none are given.
// Saved assignments of parts not present in the request are treated as existing bookings.
func (s *AssignmentService) Validate(ctx context.Context, req dto.ValidateAssignmentsRequest) (*policy.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}
	week, err := models.ParseWeek(req.WeekOf)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "weekOf must use YYYY-MM-DD")
	}
	saved, err := s.assignments.ListByWeek(ctx, week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week assignments")
	}
	inputs, err := s.loadInputs(ctx, week)
	if err != nil {
		return nil, err
	}

	if len(req.Assignments) == 0 {
		return s.validate(saved, inputs, week, nil), nil
	}

	assignments := make([]models.Assignment, 0, len(req.Assignments))
	requested := make(map[int]bool, len(req.Assignments))
	for _, item := range req.Assignments {
		var assistantID *string
		if item.AssistantID != nil && strings.TrimSpace(*item.AssistantID) != "" {
			id := strings.TrimSpace(*item.AssistantID)
			assistantID = &id
		}
		assignments = append(assignments, models.Assignment{
			StudentID:   item.StudentID,
			AssistantID: assistantID,
			PartNumber:  item.PartNumber,
			PartTitle:   item.PartTitle,
			PartType:    models.PartType(item.PartType),
			WeekOf:      week,
		})
		requested[item.PartNumber] = true
	}
	existing := make([]models.Assignment, 0, len(saved))
	for _, item := range saved {
		if !requested[item.PartNumber] {
			existing = append(existing, item)
		}
	}
	return s.validate(assignments, inputs, week, existing), nil
}

// ListByWeek returns saved assignments of a week with member names resolved.
func (s *AssignmentService) ListByWeek(ctx context.Context, query dto.AssignmentsQuery) ([]dto.AssignmentView, error) {
	if strings.TrimSpace(query.WeekOf) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "weekOf is required")
	}
	week, err := models.ParseWeek(query.WeekOf)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "weekOf must use YYYY-MM-DD")
	}
	return s.views(ctx, week)
}

// Rules lists the rule catalog, optionally narrowed to one category.
func (s *AssignmentService) Rules(query dto.RulesQuery) ([]policy.Rule, error) {
	category := strings.ToLower(strings.TrimSpace(query.Category))
	if category == "" {
		return policy.Rules(), nil
	}
	switch models.RuleCategory(category) {
	case models.CategoryQualification, models.CategoryPairing, models.CategoryScheduling, models.CategoryDistribution:
		return policy.RulesByCategory(models.RuleCategory(category)), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown rule category %q", query.Category))
	}
}

// Export renders the saved assignments of a week as CSV or PDF.
func (s *AssignmentService) Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportDocument, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	views, err := s.ListByWeek(ctx, dto.AssignmentsQuery{WeekOf: query.WeekOf})
	if err != nil {
		return nil, err
	}
	week, _ := models.ParseWeek(query.WeekOf)
	doc, err := s.exporter.Roster(week, views, format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render assignments export")
	}
	return doc, nil
}

func (s *AssignmentService) views(ctx context.Context, week time.Time) ([]dto.AssignmentView, error) {
	items, err := s.assignments.ListByWeek(ctx, week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week assignments")
	}
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load members")
	}
	names := make(map[string]string, len(students))
	for _, student := range students {
		names[student.ID] = student.FullName
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].PartNumber < items[j].PartNumber })

	views := make([]dto.AssignmentView, 0, len(items))
	for _, item := range items {
		view := dto.AssignmentView{Assignment: item, StudentName: names[item.StudentID]}
		if item.HasAssistant() {
			view.AssistantName = names[*item.AssistantID]
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *AssignmentService) validate(assignments []models.Assignment, inputs generationInputs, week time.Time, existing []models.Assignment) *policy.Result {
	result := policy.ValidateAssignments(assignments, policy.Context{
		Students:            models.IndexStudents(inputs.Input.Students),
		Qualifications:      inputs.Input.Qualifications,
		Family:              inputs.Input.Family,
		Histories:           inputs.Input.Histories,
		WeekOf:              week,
		ExistingAssignments: existing,
	})
	s.metrics.ObserveValidation(result.Score, len(result.Errors), len(result.Warnings), len(result.Infos))
	return result
}

// resolveParts prefers request parts over the stored programme of the week.
func (s *AssignmentService) resolveParts(ctx context.Context, week time.Time, requested []dto.ProgramPartRequest) ([]models.ProgramPart, error) {
	if len(requested) > 0 {
		parts := make([]models.ProgramPart, 0, len(requested))
		seen := make(map[int]bool, len(requested))
		for _, item := range requested {
			if seen[item.Number] {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate part number %d", item.Number))
			}
			seen[item.Number] = true
			partType := models.PartType(item.Type)
			requiresAssistant := partType.NeedsAssistant()
			if item.RequiresAssistant != nil {
				if !*item.RequiresAssistant && requiresAssistant {
					return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("part %d: %s parts always require an assistant", item.Number, partType))
				}
				requiresAssistant = *item.RequiresAssistant
			}
			part := models.ProgramPart{
				WeekOf:            week,
				Number:            item.Number,
				Title:             item.Title,
				Type:              partType,
				DurationMinutes:   item.DurationMinutes,
				Scene:             item.Scene,
				RequiresAssistant: requiresAssistant,
			}
			if item.GenderRestriction != "" {
				gender := models.Gender(item.GenderRestriction)
				part.GenderRestriction = &gender
			}
			parts = append(parts, part)
		}
		return parts, nil
	}
	parts, err := s.programs.ListPartsByWeek(ctx, week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting programme")
	}
	return parts, nil
}

// loadInputs reads members, qualifications, family links and trailing history for a week.
func (s *AssignmentService) loadInputs(ctx context.Context, week time.Time) (generationInputs, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return generationInputs{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load members")
	}
	quals, err := s.quals.ListAll(ctx)
	if err != nil {
		return generationInputs{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualifications")
	}
	links, err := s.family.ListLinks(ctx)
	if err != nil {
		return generationInputs{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family links")
	}
	since := week.AddDate(0, 0, -7*s.cfg.HistoryWeeks)
	history, err := s.assignments.ListHistorySince(ctx, since)
	if err != nil {
		return generationInputs{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment history")
	}
	// history rows at or after the week belong to the week being replaced
	trailing := make([]models.HistoryEntry, 0, len(history))
	for _, entry := range history {
		if models.NormalizeWeek(entry.WeekOf).Before(week) {
			trailing = append(trailing, entry)
		}
	}

	qualMap := make(map[string]models.Qualifications, len(quals))
	for _, q := range quals {
		qualMap[q.StudentID] = q
	}
	// members without a record get the same defaults the engine would derive
	for _, student := range students {
		if _, ok := qualMap[student.ID]; !ok {
			qualMap[student.ID] = models.DefaultQualifications(student)
		}
	}
	return generationInputs{
		Input: engine.Input{
			Students:       students,
			Qualifications: qualMap,
			Histories:      models.BuildHistories(trailing, week),
			Family:         models.NewFamilyGraph(links),
		},
		Links:   links,
		History: trailing,
	}, nil
}
