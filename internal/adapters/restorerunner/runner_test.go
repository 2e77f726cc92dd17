package restorerunner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/campuskit/courserestore/internal/domain/model"
	"github.com/campuskit/courserestore/internal/mocks"
)

type runnerMocks struct {
	Tasks  *mocks.MockTaskRepository
	Engine *mocks.MockRestoreEngine
	Bus    *mocks.MockCompletionBus
}

func newRunner(t *testing.T, opts ...func(*Options)) (runnerMocks, *Runner) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := runnerMocks{
		Tasks:  mocks.NewMockTaskRepository(ctrl),
		Engine: mocks.NewMockRestoreEngine(ctrl),
		Bus:    mocks.NewMockCompletionBus(ctrl),
	}

	o := Options{Tasks: m.Tasks, Engine: m.Engine, Bus: m.Bus}
	for _, opt := range opts {
		opt(&o)
	}
	return m, MustNew(o)
}

func restoreTask(t *testing.T, restoreID string, courseID int64) *model.Task {
	t.Helper()
	payload, err := json.Marshal(model.RestoreTaskPayload{RestoreID: restoreID, CourseID: courseID})
	require.NoError(t, err)
	return &model.Task{
		ID:      "task-1",
		Type:    model.TaskTypeRestore,
		Status:  model.TaskStatusRunning,
		Payload: payload,
	}
}

func TestRunner_ExecutesTaskAndPublishesSuccess(t *testing.T) {
	t.Parallel()
	m, runner := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	task := restoreTask(t, "r-1", 42)

	m.Tasks.EXPECT().ReserveNext(gomock.Any(), model.TaskTypeRestore, gomock.Any()).Return(task, nil)
	m.Engine.EXPECT().Execute(gomock.Any(), "r-1").Return(nil)
	m.Bus.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event model.CompletionEvent) error {
			assert.Equal(t, int64(42), event.CourseID)
			assert.Equal(t, model.OutcomeSucceeded, event.Outcome)
			assert.Empty(t, event.Reason)
			return nil
		})
	m.Tasks.EXPECT().Complete(gomock.Any(), "task-1").DoAndReturn(
		func(context.Context, string) error {
			cancel()
			return nil
		})

	err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_FailedExecutePublishesFailureAndCompletesTask(t *testing.T) {
	t.Parallel()
	m, runner := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	task := restoreTask(t, "r-2", 7)

	m.Tasks.EXPECT().ReserveNext(gomock.Any(), model.TaskTypeRestore, gomock.Any()).Return(task, nil)
	m.Engine.EXPECT().Execute(gomock.Any(), "r-2").Return(errors.New("duplicate user mapping"))
	m.Bus.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event model.CompletionEvent) error {
			assert.Equal(t, model.OutcomeFailed, event.Outcome)
			assert.Equal(t, "duplicate user mapping", event.Reason)
			return nil
		})
	m.Tasks.EXPECT().Complete(gomock.Any(), "task-1").DoAndReturn(
		func(context.Context, string) error {
			cancel()
			return nil
		})

	err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_TruncatesLongFailureReason(t *testing.T) {
	t.Parallel()
	m, runner := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	task := restoreTask(t, "r-3", 7)

	long := make([]byte, maxEventReasonBytes+200)
	for i := range long {
		long[i] = 'x'
	}

	m.Tasks.EXPECT().ReserveNext(gomock.Any(), model.TaskTypeRestore, gomock.Any()).Return(task, nil)
	m.Engine.EXPECT().Execute(gomock.Any(), "r-3").Return(errors.New(string(long)))
	m.Bus.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event model.CompletionEvent) error {
			assert.Len(t, event.Reason, maxEventReasonBytes)
			return nil
		})
	m.Tasks.EXPECT().Complete(gomock.Any(), "task-1").DoAndReturn(
		func(context.Context, string) error {
			cancel()
			return nil
		})

	err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTruncate_SafeForTextColumns(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", maxEventReasonBytes))

	// A multibyte rune straddling the limit is dropped whole, never split.
	multibyte := strings.Repeat("x", maxEventReasonBytes-1) + "世界"
	got := truncate(multibyte, maxEventReasonBytes)
	assert.Equal(t, strings.Repeat("x", maxEventReasonBytes-1), got)
	assert.True(t, utf8.ValidString(got))

	// Engine errors can wrap arbitrary response bytes.
	assert.Equal(t, "engine said \uFFFD", truncate("engine said \xff\xfe", maxEventReasonBytes))
	assert.Equal(t, "ab", truncate("a\x00b", maxEventReasonBytes))
}

func TestRunner_PublishFailureFailsTaskForRetry(t *testing.T) {
	t.Parallel()
	m, runner := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	task := restoreTask(t, "r-4", 9)

	m.Tasks.EXPECT().ReserveNext(gomock.Any(), model.TaskTypeRestore, gomock.Any()).Return(task, nil)
	m.Engine.EXPECT().Execute(gomock.Any(), "r-4").Return(nil)
	m.Bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
	m.Tasks.EXPECT().Fail(gomock.Any(), "task-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, reason string) error {
			assert.Contains(t, reason, "publish completion event")
			cancel()
			return nil
		})

	err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_MalformedPayloadFailsTask(t *testing.T) {
	t.Parallel()
	m, runner := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	task := &model.Task{
		ID:      "task-bad",
		Type:    model.TaskTypeRestore,
		Payload: json.RawMessage(`{"restore_id": ""}`),
	}

	m.Tasks.EXPECT().ReserveNext(gomock.Any(), model.TaskTypeRestore, gomock.Any()).Return(task, nil)
	m.Tasks.EXPECT().Fail(gomock.Any(), "task-bad", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, reason string) error {
			assert.Contains(t, reason, "restore_id")
			cancel()
			return nil
		})

	err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_WaitsWhenQueueEmpty(t *testing.T) {
	t.Parallel()
	m, runner := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())

	m.Tasks.EXPECT().ReserveNext(gomock.Any(), model.TaskTypeRestore, gomock.Any()).
		Return(nil, model.ErrNoTasksAvailable)
	m.Tasks.EXPECT().WaitForTask(gomock.Any(), model.TaskTypeRestore, defaultNotifyWait).DoAndReturn(
		func(context.Context, model.TaskType, time.Duration) error {
			cancel()
			return nil
		})

	err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_ReserveErrorStopsWorker(t *testing.T) {
	t.Parallel()
	m, runner := newRunner(t)

	m.Tasks.EXPECT().ReserveNext(gomock.Any(), model.TaskTypeRestore, gomock.Any()).
		Return(nil, errors.New("connection refused"))

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserve next")
}

func TestRunner_UsesConfiguredLease(t *testing.T) {
	t.Parallel()
	lease := 3 * time.Minute
	m, runner := newRunner(t, func(o *Options) {
		o.Lease = lease
	})

	ctx, cancel := context.WithCancel(context.Background())

	m.Tasks.EXPECT().ReserveNext(gomock.Any(), model.TaskTypeRestore, lease).DoAndReturn(
		func(context.Context, model.TaskType, time.Duration) (*model.Task, error) {
			cancel()
			return nil, model.ErrNoTasksAvailable
		})
	m.Tasks.EXPECT().WaitForTask(gomock.Any(), model.TaskTypeRestore, gomock.Any()).
		Return(context.Canceled).AnyTimes()

	err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_RequiredDependencies(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	tasks := mocks.NewMockTaskRepository(ctrl)
	engine := mocks.NewMockRestoreEngine(ctrl)
	bus := mocks.NewMockCompletionBus(ctrl)

	_, err := New(Options{Engine: engine, Bus: bus})
	require.Error(t, err)
	_, err = New(Options{Tasks: tasks, Bus: bus})
	require.Error(t, err)
	_, err = New(Options{Tasks: tasks, Engine: engine})
	require.Error(t, err)

	assert.Panics(t, func() { MustNew(Options{}) })
}
