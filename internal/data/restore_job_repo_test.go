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

func TestRestoreJobRepo_CreateAndGetByCourse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := NewRestoreJobRepo(db, RestoreJobRepoConfig{TimeProvider: NewFixedTimeProvider(now)})

	categoryID := testutil.SeedCategory(t, db, "Science")
	courseID := testutil.SeedCourse(t, db, categoryID, "bio101")

	ctx := context.Background()
	restoreID := "r-1"
	callbackURL := "https://lms.example.edu/hooks/restore"
	payload := `{"job": 7}`

	created, err := repo.Create(ctx, model.CreateRestoreJobRequest{
		CourseID:        courseID,
		BackupDir:       "/var/work/restore_abc",
		RestoreID:       &restoreID,
		CallbackURL:     &callbackURL,
		CallbackPayload: &payload,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, courseID, created.CourseID)
	assert.Equal(t, now, created.TimeCreated.UTC())
	assert.False(t, created.Failed)
	assert.Nil(t, created.TimeExecuted)

	got, err := repo.GetByCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.NotNil(t, got.RestoreID)
	assert.Equal(t, "r-1", *got.RestoreID)
	require.NotNil(t, got.CallbackURL)
	assert.Equal(t, callbackURL, *got.CallbackURL)
	require.NotNil(t, got.CallbackPayload)
	assert.Equal(t, payload, *got.CallbackPayload)
}

func TestRestoreJobRepo_GetByCourse_IgnoresFailedJobs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewRestoreJobRepo(db, RestoreJobRepoConfig{})
	categoryID := testutil.SeedCategory(t, db, "Science")
	courseID := testutil.SeedCourse(t, db, categoryID, "bio101")

	ctx := context.Background()
	job, err := repo.Create(ctx, model.CreateRestoreJobRequest{CourseID: courseID, BackupDir: "/var/work/a"})
	require.NoError(t, err)

	reason := "callback delivery failed"
	executed := time.Now().UTC()
	job.Failed = true
	job.FailureReason = &reason
	job.TimeExecuted = &executed
	require.NoError(t, repo.Update(ctx, job))

	_, err = repo.GetByCourse(ctx, courseID)
	require.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestRestoreJobRepo_GetByCourse_NoJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewRestoreJobRepo(db, RestoreJobRepoConfig{})

	_, err := repo.GetByCourse(context.Background(), 123456)
	require.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestRestoreJobRepo_UpdatePersistsFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewRestoreJobRepo(db, RestoreJobRepoConfig{})
	categoryID := testutil.SeedCategory(t, db, "Science")
	courseID := testutil.SeedCourse(t, db, categoryID, "bio101")

	ctx := context.Background()
	job, err := repo.Create(ctx, model.CreateRestoreJobRequest{CourseID: courseID, BackupDir: "/var/work/a"})
	require.NoError(t, err)

	reason := "Unexpected response, HTTP code: 502 Response: bad gateway"
	executed := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)
	job.Failed = true
	job.FailureReason = &reason
	job.TimeExecuted = &executed
	require.NoError(t, repo.Update(ctx, job))

	listings, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.True(t, listings[0].Failed)
	require.NotNil(t, listings[0].FailureReason)
	assert.Equal(t, reason, *listings[0].FailureReason)
	require.NotNil(t, listings[0].TimeExecuted)
	assert.Equal(t, executed, listings[0].TimeExecuted.UTC())
}

func TestRestoreJobRepo_Update_UnknownJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewRestoreJobRepo(db, RestoreJobRepoConfig{})

	err := repo.Update(context.Background(), &model.RestoreJob{ID: 999999})
	require.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestRestoreJobRepo_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewRestoreJobRepo(db, RestoreJobRepoConfig{})
	categoryID := testutil.SeedCategory(t, db, "Science")
	courseID := testutil.SeedCourse(t, db, categoryID, "bio101")

	ctx := context.Background()
	job, err := repo.Create(ctx, model.CreateRestoreJobRequest{CourseID: courseID, BackupDir: "/var/work/a"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, job.ID))
	require.ErrorIs(t, repo.Delete(ctx, job.ID), model.ErrJobNotFound)
}

func TestRestoreJobRepo_ListAll_JoinsCourseShortname(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	tp := NewFixedTimeProvider(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	repo := NewRestoreJobRepo(db, RestoreJobRepoConfig{TimeProvider: tp})
	categoryID := testutil.SeedCategory(t, db, "Science")
	firstCourse := testutil.SeedCourse(t, db, categoryID, "bio101")
	secondCourse := testutil.SeedCourse(t, db, categoryID, "chem202")

	ctx := context.Background()
	_, err := repo.Create(ctx, model.CreateRestoreJobRequest{CourseID: firstCourse, BackupDir: "/var/work/a"})
	require.NoError(t, err)

	tp.AddTime(time.Minute)
	_, err = repo.Create(ctx, model.CreateRestoreJobRequest{CourseID: secondCourse, BackupDir: "/var/work/b"})
	require.NoError(t, err)

	listings, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	// newest first
	assert.Equal(t, "chem202", listings[0].CourseShortname)
	assert.Equal(t, "bio101", listings[1].CourseShortname)
}

func TestRestoreJobRepo_ListPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewRestoreJobRepo(db, RestoreJobRepoConfig{})
	categoryID := testutil.SeedCategory(t, db, "Science")
	courseID := testutil.SeedCourse(t, db, categoryID, "bio101")
	otherCourse := testutil.SeedCourse(t, db, categoryID, "chem202")

	ctx := context.Background()
	pending, err := repo.Create(ctx, model.CreateRestoreJobRequest{CourseID: courseID, BackupDir: "/var/work/a"})
	require.NoError(t, err)

	settled, err := repo.Create(ctx, model.CreateRestoreJobRequest{CourseID: otherCourse, BackupDir: "/var/work/b"})
	require.NoError(t, err)
	executed := time.Now().UTC()
	settled.TimeExecuted = &executed
	require.NoError(t, repo.Update(ctx, settled))

	jobs, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, pending.ID, jobs[0].ID)
}

func TestRestoreJobRepo_ClearFailed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewRestoreJobRepo(db, RestoreJobRepoConfig{})
	categoryID := testutil.SeedCategory(t, db, "Science")
	courseID := testutil.SeedCourse(t, db, categoryID, "bio101")
	otherCourse := testutil.SeedCourse(t, db, categoryID, "chem202")

	ctx := context.Background()
	failed, err := repo.Create(ctx, model.CreateRestoreJobRequest{CourseID: courseID, BackupDir: "/var/work/a"})
	require.NoError(t, err)
	failed.Failed = true
	require.NoError(t, repo.Update(ctx, failed))

	kept, err := repo.Create(ctx, model.CreateRestoreJobRequest{CourseID: otherCourse, BackupDir: "/var/work/b"})
	require.NoError(t, err)

	deleted, err := repo.ClearFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	listings, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, kept.ID, listings[0].ID)
}

func TestRestoreJobRepo_Create_RejectsInvalidRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewRestoreJobRepo(db, RestoreJobRepoConfig{})

	_, err := repo.Create(context.Background(), model.CreateRestoreJobRequest{CourseID: 0, BackupDir: "/x"})
	require.Error(t, err)

	bad := "not a url"
	_, err = repo.Create(context.Background(), model.CreateRestoreJobRequest{
		CourseID:    1,
		BackupDir:   "/x",
		CallbackURL: &bad,
	})
	require.Error(t, err)
}
