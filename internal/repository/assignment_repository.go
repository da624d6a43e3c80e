package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

// AssignmentRepository persists weekly assignments and serves assignment history.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const assignmentColumns = `id, student_id, assistant_id, part_number, part_title, part_type, scene, duration_minutes, week_of, confirmed, created_at`

// ListByWeek returns the saved assignments of a week ordered by part number.
func (r *AssignmentRepository) ListByWeek(ctx context.Context, week time.Time) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE week_of = $1 ORDER BY part_number`, assignmentColumns)
	var items []models.Assignment
	if err := r.db.SelectContext(ctx, &items, query, models.NormalizeWeek(week)); err != nil {
		return nil, fmt.Errorf("list assignments by week: %w", err)
	}
	return items, nil
}

// ListHistorySince flattens assignments on or after since into one entry per
// participant, main students and assistants alike.
func (r *AssignmentRepository) ListHistorySince(ctx context.Context, since time.Time) ([]models.HistoryEntry, error) {
	const query = `
SELECT student_id, week_of, part_number, part_type, false AS as_assistant
FROM assignments WHERE week_of >= $1
UNION ALL
SELECT assistant_id AS student_id, week_of, part_number, part_type, true AS as_assistant
FROM assignments WHERE week_of >= $1 AND assistant_id IS NOT NULL
ORDER BY week_of, part_number`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, models.NormalizeWeek(since)); err != nil {
		return nil, fmt.Errorf("list assignment history: %w", err)
	}
	return entries, nil
}

// DeleteByWeek removes every assignment of a week.
func (r *AssignmentRepository) DeleteByWeek(ctx context.Context, exec sqlx.ExtContext, week time.Time) error {
	const query = `DELETE FROM assignments WHERE week_of = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, models.NormalizeWeek(week)); err != nil {
		return fmt.Errorf("delete assignments by week: %w", err)
	}
	return nil
}

// CreateBatch inserts the assignments, assigning ids and timestamps where missing.
func (r *AssignmentRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, items []models.Assignment) error {
	if len(items) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO assignments (` + assignmentColumns + `)
VALUES (:id, :student_id, :assistant_id, :part_number, :part_title, :part_type, :scene, :duration_minutes, :week_of, :confirmed, :created_at)`

	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.WeekOf = models.NormalizeWeek(item.WeekOf)
		if _, err := sqlx.NamedExecContext(ctx, target, query, item); err != nil {
			return fmt.Errorf("create assignment for part %d: %w", item.PartNumber, err)
		}
	}
	return nil
}

// ProgramRepository reads the weekly meeting programme.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs a ProgramRepository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// ListPartsByWeek returns the programme parts of a week ordered by part number.
func (r *ProgramRepository) ListPartsByWeek(ctx context.Context, week time.Time) ([]models.ProgramPart, error) {
	const query = `SELECT id, week_of, part_number, title, part_type, duration_minutes, scene, requires_assistant, gender_restriction
        FROM program_parts WHERE week_of = $1 ORDER BY part_number`
	var parts []models.ProgramPart
	if err := r.db.SelectContext(ctx, &parts, query, models.NormalizeWeek(week)); err != nil {
		return nil, fmt.Errorf("list program parts: %w", err)
	}
	return parts, nil
}
