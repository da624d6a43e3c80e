package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
)

var repoWeek = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func TestAssignmentRepositoryListByWeek(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "assistant_id", "part_number", "part_title", "part_type", "scene", "duration_minutes", "week_of", "confirmed", "created_at"}).
		AddRow("a-1", "s-1", nil, 3, "Bible Reading", "SCRIPTURE_READING", nil, 4, repoWeek, true, time.Now()).
		AddRow("a-2", "s-2", "s-3", 5, "Starting a Conversation", "DEMONSTRATION", "house to house", 3, repoWeek, false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE week_of = $1 ORDER BY part_number")).
		WithArgs(repoWeek).
		WillReturnRows(rows)

	items, err := repo.ListByWeek(context.Background(), repoWeek.Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[0].HasAssistant())
	require.True(t, items[1].HasAssistant())
	assert.Equal(t, "s-3", *items[1].AssistantID)
	assert.Equal(t, models.PartDemonstration, items[1].PartType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListHistorySince(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	since := repoWeek.AddDate(0, 0, -56)
	rows := sqlmock.NewRows([]string{"student_id", "week_of", "part_number", "part_type", "as_assistant"}).
		AddRow("s-1", repoWeek.AddDate(0, 0, -7), 3, "SCRIPTURE_READING", false).
		AddRow("s-3", repoWeek.AddDate(0, 0, -7), 5, "DEMONSTRATION", true)
	mock.ExpectQuery("UNION ALL").WithArgs(since).WillReturnRows(rows)

	entries, err := repo.ListHistorySince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].AsAssistant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReplaceWeekInTransaction(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	helper := "s-3"
	items := []models.Assignment{
		{StudentID: "s-1", PartNumber: 3, PartType: models.PartScriptureReading, WeekOf: repoWeek},
		{StudentID: "s-2", AssistantID: &helper, PartNumber: 5, PartType: models.PartDemonstration, WeekOf: repoWeek},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE week_of = $1")).
		WithArgs(repoWeek).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteByWeek(context.Background(), tx, repoWeek))
	require.NoError(t, repo.CreateBatch(context.Background(), tx, items))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, items[0].ID)
	assert.False(t, items[1].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateBatchWrapsErrors(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO assignments").WillReturnError(errors.New("duplicate key"))

	err := repo.CreateBatch(context.Background(), nil, []models.Assignment{{StudentID: "s-1", PartNumber: 3, WeekOf: repoWeek}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "part 3")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryListPartsByWeek(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	rows := sqlmock.NewRows([]string{"id", "week_of", "part_number", "title", "part_type", "duration_minutes", "scene", "requires_assistant", "gender_restriction"}).
		AddRow("p-3", repoWeek, 3, "Bible Reading", "SCRIPTURE_READING", 4, nil, false, "MALE").
		AddRow("p-5", repoWeek, 5, "Starting a Conversation", "DEMONSTRATION", 3, nil, true, nil)
	mock.ExpectQuery("FROM program_parts").WithArgs(repoWeek).WillReturnRows(rows)

	parts, err := repo.ListPartsByWeek(context.Background(), repoWeek)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].GenderRestriction)
	assert.Equal(t, models.GenderMale, *parts[0].GenderRestriction)
	assert.True(t, parts[1].RequiresAssistant)
	assert.NoError(t, mock.ExpectationsWereMet())
}
