package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
)

func TestStudentRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "registration_number", "first_name", "last_name", "status", "formation_title"}).
		AddRow("s-1", "ASM-2024-0001", "Awa", "Kone", "actif", "Secrétariat")
	mock.ExpectQuery(`SELECT .* FROM students s LEFT JOIN formations f ON f.id = s.formation_id WHERE s.status = \$1 AND \(LOWER\(s.first_name\) LIKE \$2 .* ORDER BY s.last_name ASC LIMIT 20 OFFSET 0`).
		WithArgs(models.StudentStatusActive, "%awa%").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students s LEFT JOIN formations f`).
		WithArgs(models.StudentStatusActive, "%awa%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{
		Search:    "Awa",
		Status:    models.StudentStatusActive,
		SortBy:    "last_name",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "ASM-2024-0001", students[0].RegistrationNumber)
	require.NotNil(t, students[0].FormationTitle)
	assert.Equal(t, "Secrétariat", *students[0].FormationTitle)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(anyArgs(15)...).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{RegistrationNumber: "ASM-2024-0002", FirstName: "Yao", LastName: "Koffi", Status: models.StudentStatusActive}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.EnrollmentDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(`DELETE FROM students WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM students WHERE LOWER\(email\) = LOWER\(\$1\) AND id <> \$2 LIMIT 1`).
		WithArgs("awa@example.com", "s-1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByEmail(context.Background(), "awa@example.com", "s-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
