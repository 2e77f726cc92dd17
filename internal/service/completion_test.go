package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/campuskit/courserestore/internal/domain/model"
	"github.com/campuskit/courserestore/internal/mocks"
)

func newCompletionService(t *testing.T, dispatcher *CallbackDispatcher) (*mocks.MockRestoreJobRepository, *CompletionService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	jobs := mocks.NewMockRestoreJobRepository(ctrl)
	if dispatcher == nil {
		dispatcher = MustNewCallbackDispatcher(CallbackDispatcherOptions{})
	}

	svc := MustNewCompletionService(CompletionServiceOptions{
		Jobs:       jobs,
		Dispatcher: dispatcher,
	})
	return jobs, svc
}

func makeWorkdir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "restore_abc123")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "moodle_backup.xml"), []byte("<backup/>"), 0o640))
	return dir
}

func TestCompletionService_Handle_SuccessWithoutCallback(t *testing.T) {
	t.Parallel()
	jobs, svc := newCompletionService(t, nil)

	ctx := context.Background()
	workdir := makeWorkdir(t)
	job := &model.RestoreJob{ID: 7, CourseID: 42, BackupDir: workdir}

	jobs.EXPECT().GetByCourse(ctx, int64(42)).Return(job, nil)
	jobs.EXPECT().Delete(ctx, int64(7)).Return(nil)

	err := svc.Handle(ctx, model.CompletionEvent{CourseID: 42, Outcome: model.OutcomeSucceeded})
	require.NoError(t, err)

	// Working directory is removed regardless of outcome.
	_, statErr := os.Stat(workdir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCompletionService_Handle_SuccessFiresCallbackThenDeletes(t *testing.T) {
	t.Parallel()

	var gotMethod string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = readAllBody(r)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	jobs, svc := newCompletionService(t, nil)

	ctx := context.Background()
	payload := `{"ref":"abc"}`
	callbackURL := srv.URL
	job := &model.RestoreJob{
		ID:              3,
		CourseID:        9,
		BackupDir:       makeWorkdir(t),
		CallbackURL:     &callbackURL,
		CallbackPayload: &payload,
	}

	jobs.EXPECT().GetByCourse(ctx, int64(9)).Return(job, nil)
	jobs.EXPECT().Delete(ctx, int64(3)).Return(nil)

	err := svc.Handle(ctx, model.CompletionEvent{CourseID: 9, Outcome: model.OutcomeSucceeded})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, payload, string(gotBody))
}

func TestCompletionService_Handle_CallbackFailureSettlesFailed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	jobs, svc := newCompletionService(t, nil)

	ctx := context.Background()
	callbackURL := srv.URL
	job := &model.RestoreJob{ID: 5, CourseID: 11, BackupDir: makeWorkdir(t), CallbackURL: &callbackURL}

	jobs.EXPECT().GetByCourse(ctx, int64(11)).Return(job, nil)
	jobs.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, updated *model.RestoreJob) error {
		assert.True(t, updated.Failed)
		require.NotNil(t, updated.FailureReason)
		assert.Equal(t, "Unexpected response, HTTP code: 502 Response: upstream down", *updated.FailureReason)
		require.NotNil(t, updated.TimeExecuted)
		return nil
	})

	err := svc.Handle(ctx, model.CompletionEvent{CourseID: 11, Outcome: model.OutcomeSucceeded})
	require.NoError(t, err)
}

func TestCompletionService_Handle_FailedOutcomeSkipsCallback(t *testing.T) {
	t.Parallel()

	callbackCalled := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		callbackCalled = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	jobs, svc := newCompletionService(t, nil)

	ctx := context.Background()
	callbackURL := srv.URL
	job := &model.RestoreJob{ID: 8, CourseID: 13, BackupDir: makeWorkdir(t), CallbackURL: &callbackURL}

	jobs.EXPECT().GetByCourse(ctx, int64(13)).Return(job, nil)
	jobs.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, updated *model.RestoreJob) error {
		assert.True(t, updated.Failed)
		require.NotNil(t, updated.FailureReason)
		assert.Equal(t, "engine exploded", *updated.FailureReason)
		return nil
	})

	err := svc.Handle(ctx, model.CompletionEvent{
		CourseID: 13,
		Outcome:  model.OutcomeFailed,
		Reason:   "engine exploded",
	})
	require.NoError(t, err)
	assert.False(t, callbackCalled)
}

func TestCompletionService_Handle_TruncatesFailureReason(t *testing.T) {
	t.Parallel()
	jobs, svc := newCompletionService(t, nil)

	ctx := context.Background()
	job := &model.RestoreJob{ID: 2, CourseID: 4}

	jobs.EXPECT().GetByCourse(ctx, int64(4)).Return(job, nil)
	jobs.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, updated *model.RestoreJob) error {
		require.NotNil(t, updated.FailureReason)
		assert.Len(t, *updated.FailureReason, maxFailureReasonLen)
		return nil
	})

	longReason := strings.Repeat("x", maxFailureReasonLen+500)
	err := svc.Handle(ctx, model.CompletionEvent{CourseID: 4, Outcome: model.OutcomeFailed, Reason: longReason})
	require.NoError(t, err)
}

func TestTruncateReason_SafeForTextColumns(t *testing.T) {
	t.Parallel()

	short := "engine connection refused"
	assert.Equal(t, short, truncateReason(short))

	// A multibyte rune straddling the limit is dropped whole, never split.
	multibyte := strings.Repeat("x", maxFailureReasonLen-1) + "世界"
	got := truncateReason(multibyte)
	assert.Equal(t, strings.Repeat("x", maxFailureReasonLen-1), got)
	assert.True(t, utf8.ValidString(got))

	// Callback bodies are arbitrary bytes; invalid sequences are replaced.
	assert.Equal(t, "callback body: \uFFFD", truncateReason("callback body: \xff\xfe"))
	assert.True(t, utf8.ValidString(truncateReason(strings.Repeat("\xf0\x9f", maxFailureReasonLen))))

	// Postgres rejects NUL in text columns even though it is valid UTF-8.
	assert.Equal(t, "ab", truncateReason("a\x00b"))
}

func TestCompletionService_Handle_NoJobIsNoop(t *testing.T) {
	t.Parallel()
	jobs, svc := newCompletionService(t, nil)

	ctx := context.Background()
	jobs.EXPECT().GetByCourse(ctx, int64(99)).Return(nil, model.ErrJobNotFound)

	err := svc.Handle(ctx, model.CompletionEvent{CourseID: 99, Outcome: model.OutcomeSucceeded})
	require.NoError(t, err)
}

func TestCompletionService_Handle_RepoErrorPropagates(t *testing.T) {
	t.Parallel()
	jobs, svc := newCompletionService(t, nil)

	ctx := context.Background()
	repoErr := errors.New("connection lost")
	jobs.EXPECT().GetByCourse(ctx, int64(1)).Return(nil, repoErr)

	err := svc.Handle(ctx, model.CompletionEvent{CourseID: 1, Outcome: model.OutcomeSucceeded})
	require.ErrorIs(t, err, repoErr)
}

func TestCompletionService_Handle_InvalidEvent(t *testing.T) {
	t.Parallel()
	_, svc := newCompletionService(t, nil)

	err := svc.Handle(context.Background(), model.CompletionEvent{})
	require.Error(t, err)
}

func TestCompletionService_Handle_DeleteNotFoundTolerated(t *testing.T) {
	t.Parallel()
	jobs, svc := newCompletionService(t, nil)

	ctx := context.Background()
	job := &model.RestoreJob{ID: 6, CourseID: 17}

	jobs.EXPECT().GetByCourse(ctx, int64(17)).Return(job, nil)
	jobs.EXPECT().Delete(ctx, int64(6)).Return(model.ErrJobNotFound)

	err := svc.Handle(ctx, model.CompletionEvent{CourseID: 17, Outcome: model.OutcomeSucceeded})
	require.NoError(t, err)
}
