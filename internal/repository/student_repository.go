package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

// StudentRepository reads congregation members enrolled in the meeting school.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, full_name, gender, role, active, is_minor, family_group, created_at, updated_at`

// ListAll returns every member, active or not, ordered by id.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students ORDER BY id`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a member by id. sql.ErrNoRows is returned untouched.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// QualificationRepository reads per-member capability flags.
type QualificationRepository struct {
	db *sqlx.DB
}

// NewQualificationRepository constructs a QualificationRepository.
func NewQualificationRepository(db *sqlx.DB) *QualificationRepository {
	return &QualificationRepository{db: db}
}

// ListAll returns every stored qualification record.
func (r *QualificationRepository) ListAll(ctx context.Context) ([]models.Qualifications, error) {
	const query = `SELECT student_id, can_read_scripture, can_give_talk, can_do_initial_call, can_do_return_visit,
        can_do_bible_study, can_demonstrate, can_be_assistant, can_mentor
        FROM student_qualifications`
	var quals []models.Qualifications
	if err := r.db.SelectContext(ctx, &quals, query); err != nil {
		return nil, fmt.Errorf("list qualifications: %w", err)
	}
	return quals, nil
}

// FamilyRepository reads family relationship links.
type FamilyRepository struct {
	db *sqlx.DB
}

// NewFamilyRepository constructs a FamilyRepository.
func NewFamilyRepository(db *sqlx.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// ListLinks returns stored links as written; callers symmetrise them.
func (r *FamilyRepository) ListLinks(ctx context.Context) ([]models.FamilyLink, error) {
	const query = `SELECT student_id, related_id, relation FROM family_links ORDER BY student_id, related_id`
	var links []models.FamilyLink
	if err := r.db.SelectContext(ctx, &links, query); err != nil {
		return nil, fmt.Errorf("list family links: %w", err)
	}
	return links, nil
}
