package data

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/courserestore/internal/domain/model"
	"github.com/campuskit/courserestore/internal/testutil"
)

func restorePayload(t *testing.T) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(model.RestoreTaskPayload{RestoreID: "r-1", CourseID: 42})
	require.NoError(t, err)
	return payload
}

func TestTaskRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewTaskRepo(db, TaskRepoConfig{})
	ctx := context.Background()

	created, err := repo.Create(ctx, model.CreateTaskRequest{
		Type:    model.TaskTypeRestore,
		Payload: restorePayload(t),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.TaskTypeRestore, created.Type)
	assert.Equal(t, model.TaskStatusPending, created.Status)
	assert.JSONEq(t, string(restorePayload(t)), string(created.Payload))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, model.TaskStatusPending, got.Status)
}

func TestTaskRepo_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewTaskRepo(db, TaskRepoConfig{})

	_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskRepo_ReserveNext_ClaimsOldestPendingTask(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	tp := NewFixedTimeProvider(time.Now().UTC())
	repo := NewTaskRepo(db, TaskRepoConfig{TimeProvider: tp})
	ctx := context.Background()

	first, err := repo.Create(ctx, model.CreateTaskRequest{Type: model.TaskTypeRestore, Payload: restorePayload(t)})
	require.NoError(t, err)

	tp.AddTime(time.Second)
	_, err = repo.Create(ctx, model.CreateTaskRequest{Type: model.TaskTypeRestore, Payload: restorePayload(t)})
	require.NoError(t, err)

	tp.AddTime(time.Second)
	reserved, err := repo.ReserveNext(ctx, model.TaskTypeRestore, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, first.ID, reserved.ID)
	assert.Equal(t, model.TaskStatusRunning, reserved.Status)
	assert.NotNil(t, reserved.StartedAt)
	assert.NotNil(t, reserved.LeaseExpiresAt)
}

func TestTaskRepo_ReserveNext_EmptyQueue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewTaskRepo(db, TaskRepoConfig{})

	_, err := repo.ReserveNext(context.Background(), model.TaskTypeRestore, time.Minute)
	require.ErrorIs(t, err, model.ErrNoTasksAvailable)
}

func TestTaskRepo_ReserveNext_SkipsRunningTasks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewTaskRepo(db, TaskRepoConfig{})
	ctx := context.Background()

	_, err := repo.Create(ctx, model.CreateTaskRequest{Type: model.TaskTypeRestore, Payload: restorePayload(t)})
	require.NoError(t, err)

	_, err = repo.ReserveNext(ctx, model.TaskTypeRestore, time.Minute)
	require.NoError(t, err)

	_, err = repo.ReserveNext(ctx, model.TaskTypeRestore, time.Minute)
	require.ErrorIs(t, err, model.ErrNoTasksAvailable)
}

func TestTaskRepo_ReserveNext_RequeuesExpiredLeases(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	tp := NewFixedTimeProvider(time.Now().UTC())
	repo := NewTaskRepo(db, TaskRepoConfig{TimeProvider: tp})
	ctx := context.Background()

	task, err := repo.Create(ctx, model.CreateTaskRequest{Type: model.TaskTypeRestore, Payload: restorePayload(t)})
	require.NoError(t, err)

	_, err = repo.ReserveNext(ctx, model.TaskTypeRestore, time.Second)
	require.NoError(t, err)

	// lease runs out, the task becomes reservable again
	tp.AddTime(time.Minute)
	reclaimed, err := repo.ReserveNext(ctx, model.TaskTypeRestore, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, task.ID, reclaimed.ID)
}

func TestTaskRepo_Complete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewTaskRepo(db, TaskRepoConfig{})
	ctx := context.Background()

	_, err := repo.Create(ctx, model.CreateTaskRequest{Type: model.TaskTypeRestore, Payload: restorePayload(t)})
	require.NoError(t, err)

	reserved, err := repo.ReserveNext(ctx, model.TaskTypeRestore, time.Minute)
	require.NoError(t, err)

	require.NoError(t, repo.Complete(ctx, reserved.ID))

	completed, err := repo.GetByID(ctx, reserved.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Nil(t, completed.LeaseExpiresAt)

	// completing twice is an error: the task is no longer running
	require.ErrorIs(t, repo.Complete(ctx, reserved.ID), ErrTaskNotFound)
}

func TestTaskRepo_Fail_RetriesUntilExhausted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	tp := NewFixedTimeProvider(time.Now().UTC())
	repo := NewTaskRepo(db, TaskRepoConfig{RetryDelay: time.Second, TimeProvider: tp})
	ctx := context.Background()

	created, err := repo.Create(ctx, model.CreateTaskRequest{
		Type:       model.TaskTypeRestore,
		Payload:    restorePayload(t),
		MaxRetries: 2,
	})
	require.NoError(t, err)

	reserved, err := repo.ReserveNext(ctx, model.TaskTypeRestore, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.Fail(ctx, reserved.ID, "engine unreachable"))

	afterFirst, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, afterFirst.Status)
	assert.Equal(t, 1, afterFirst.RetryCount)
	require.NotNil(t, afterFirst.LastError)
	assert.Equal(t, "engine unreachable", *afterFirst.LastError)

	// move past the retry delay and burn the second attempt
	tp.AddTime(2 * time.Second)
	reserved, err = repo.ReserveNext(ctx, model.TaskTypeRestore, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.Fail(ctx, reserved.ID, "engine unreachable"))

	exhausted, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, exhausted.Status)
	assert.Equal(t, 2, exhausted.RetryCount)
	assert.NotNil(t, exhausted.CompletedAt)
}

func TestTaskRepo_Fail_NoRetriesMarksFailedImmediately(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewTaskRepo(db, TaskRepoConfig{})
	ctx := context.Background()

	created, err := repo.Create(ctx, model.CreateTaskRequest{Type: model.TaskTypeRestore, Payload: restorePayload(t)})
	require.NoError(t, err)

	reserved, err := repo.ReserveNext(ctx, model.TaskTypeRestore, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.Fail(ctx, reserved.ID, "publish completion event: redis down"))

	failed, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, failed.Status)
}

func TestTaskRepo_WaitForTask_WakesOnCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewTaskRepo(db, TaskRepoConfig{})
	ctx := context.Background()

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- repo.WaitForTask(ctx, model.TaskTypeRestore, 10*time.Second)
	}()

	// give the listener a moment to subscribe
	time.Sleep(200 * time.Millisecond)

	_, err := repo.Create(ctx, model.CreateTaskRequest{Type: model.TaskTypeRestore, Payload: restorePayload(t)})
	require.NoError(t, err)

	select {
	case waitErr := <-waitDone:
		require.NoError(t, waitErr)
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForTask did not wake up on task creation")
	}
}

func TestTaskRepo_WaitForTask_TimeoutIsNotAnError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewTaskRepo(db, TaskRepoConfig{})

	err := repo.WaitForTask(context.Background(), model.TaskTypeRestore, 300*time.Millisecond)
	require.NoError(t, err)
}
