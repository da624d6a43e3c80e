package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var studentRowColumns = []string{"id", "full_name", "gender", "role", "active", "is_minor", "family_group", "created_at", "updated_at"}

func TestStudentRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s-1", "Brother A", "MALE", "ELDER", true, false, nil, now, now).
		AddRow("s-2", "Sister B", "FEMALE", "BAPTIZED_PUBLISHER", true, true, "house-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students ORDER BY id")).WillReturnRows(rows)

	students, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, models.RoleElder, students[0].Role)
	assert.Nil(t, students[0].FamilyGroup)
	assert.True(t, students[1].Minor)
	require.NotNil(t, students[1].FamilyGroup)
	assert.Equal(t, "house-1", *students[1].FamilyGroup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQualificationRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewQualificationRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "can_read_scripture", "can_give_talk", "can_do_initial_call", "can_do_return_visit", "can_do_bible_study", "can_demonstrate", "can_be_assistant", "can_mentor"}).
		AddRow("s-1", true, true, true, true, true, true, true, true)
	mock.ExpectQuery("FROM student_qualifications").WillReturnRows(rows)

	quals, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, quals, 1)
	assert.True(t, quals[0].ScriptureReading)
	assert.True(t, quals[0].Assistant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFamilyRepositoryListLinks(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewFamilyRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "related_id", "relation"}).
		AddRow("s-1", "s-2", "spouse")
	mock.ExpectQuery("FROM family_links").WillReturnRows(rows)

	links, err := repo.ListLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.FamilyLink{{StudentID: "s-1", RelatedID: "s-2", Relation: "spouse"}}, links)
	assert.NoError(t, mock.ExpectationsWereMet())
}
