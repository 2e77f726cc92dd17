package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/courserestore/internal/domain/model"
	"github.com/campuskit/courserestore/internal/testutil"
)

func TestCourseRepo_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewCourseRepo(db, nil)
	categoryID := testutil.SeedCategory(t, db, "Science")
	courseID := testutil.SeedCourse(t, db, categoryID, "bio101")

	course, err := repo.GetByID(context.Background(), courseID)
	require.NoError(t, err)
	assert.Equal(t, courseID, course.ID)
	assert.Equal(t, "bio101", course.Shortname)
	assert.Equal(t, categoryID, course.CategoryID)

	_, err = repo.GetByID(context.Background(), 999999)
	require.ErrorIs(t, err, model.ErrCourseNotFound)
}

func TestCourseRepo_GetByShortname(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewCourseRepo(db, nil)
	categoryID := testutil.SeedCategory(t, db, "Science")
	courseID := testutil.SeedCourse(t, db, categoryID, "bio101")

	course, err := repo.GetByShortname(context.Background(), "bio101")
	require.NoError(t, err)
	assert.Equal(t, courseID, course.ID)

	_, err = repo.GetByShortname(context.Background(), "nope")
	require.ErrorIs(t, err, model.ErrCourseNotFound)
}

func TestCourseRepo_GetByIDNumber_IgnoresEmptyIDNumbers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewCourseRepo(db, nil)
	categoryID := testutil.SeedCategory(t, db, "Science")
	courseID := testutil.SeedCourse(t, db, categoryID, "bio101")
	testutil.SeedCourse(t, db, categoryID, "chem202")

	ctx := context.Background()
	_, err := db.ExecContext(ctx, "UPDATE courses SET idnumber = 'SIS-42' WHERE id = $1", courseID)
	require.NoError(t, err)

	course, err := repo.GetByIDNumber(ctx, "SIS-42")
	require.NoError(t, err)
	assert.Equal(t, courseID, course.ID)

	// seeded courses carry an empty idnumber and must never match
	_, err = repo.GetByIDNumber(ctx, "")
	require.ErrorIs(t, err, model.ErrCourseNotFound)
}

func TestCourseRepo_CategoryExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewCourseRepo(db, nil)
	categoryID := testutil.SeedCategory(t, db, "Science")

	exists, err := repo.CategoryExists(context.Background(), categoryID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.CategoryExists(context.Background(), 999999)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCourseRepo_CreateCourse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := NewCourseRepo(db, NewFixedTimeProvider(now))
	categoryID := testutil.SeedCategory(t, db, "Science")

	course, err := repo.CreateCourse(context.Background(), model.CreateCourseRequest{
		CategoryID: categoryID,
		Shortname:  "restored_abc123",
		Fullname:   "Restored course abc123",
	})
	require.NoError(t, err)
	assert.NotZero(t, course.ID)
	assert.Equal(t, "restored_abc123", course.Shortname)
	assert.Empty(t, course.IDNumber)
	assert.Equal(t, now, course.CreatedAt.UTC())
}

func TestCourseRepo_CreateCourse_DuplicateShortname(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewCourseRepo(db, nil)
	categoryID := testutil.SeedCategory(t, db, "Science")
	testutil.SeedCourse(t, db, categoryID, "bio101")

	_, err := repo.CreateCourse(context.Background(), model.CreateCourseRequest{
		CategoryID: categoryID,
		Shortname:  "bio101",
		Fullname:   "Duplicate",
	})
	require.ErrorIs(t, err, ErrCourseExists)
}

func TestCourseRepo_CreateCourse_RejectsInvalidRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewCourseRepo(db, nil)

	_, err := repo.CreateCourse(context.Background(), model.CreateCourseRequest{Shortname: "x"})
	require.Error(t, err)
}
