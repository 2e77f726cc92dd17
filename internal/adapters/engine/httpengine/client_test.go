package httpengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/courserestore/internal/domain/model"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...func(*Options)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o := Options{
		BaseURL:      srv.URL,
		HTTPClient:   srv.Client(),
		PollInterval: 5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return MustNew(o), srv
}

func validSpec() model.EngineRestoreSpec {
	return model.EngineRestoreSpec{
		BackupDir: "/var/restores/restore_abc",
		CourseID:  42,
		Target:    model.TargetExistingDeleting,
	}
}

func TestClient_Create(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/restores", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var spec model.EngineRestoreSpec
		require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		assert.Equal(t, int64(42), spec.CourseID)
		assert.Equal(t, model.TargetExistingDeleting, spec.Target)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"restore_id": "r-123"}`))
	}))

	restoreID, err := client.Create(context.Background(), validSpec())
	require.NoError(t, err)
	assert.Equal(t, "r-123", restoreID)
}

func TestClient_Create_SendsBearerToken(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"restore_id": "r-1"}`))
	}), func(o *Options) {
		o.Token = "s3cret"
	})

	_, err := client.Create(context.Background(), validSpec())
	require.NoError(t, err)
}

func TestClient_Create_RejectsInvalidSpec(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("engine must not be called for an invalid spec")
	}))

	_, err := client.Create(context.Background(), model.EngineRestoreSpec{CourseID: 42})
	require.Error(t, err)
}

func TestClient_Create_EmptyRestoreID(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"restore_id": ""}`))
	}))

	_, err := client.Create(context.Background(), validSpec())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty restore id")
}

func TestClient_Create_ErrorStatusIncludesBody(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backup dir unreadable", http.StatusUnprocessableEntity)
	}))

	_, err := client.Create(context.Background(), validSpec())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 422")
	assert.Contains(t, err.Error(), "backup dir unreadable")
}

func TestClient_Precheck(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/restores/r-9/precheck", r.URL.Path)
		_, _ = w.Write([]byte(`{"errors": ["missing activity module: quiz"], "warnings": ["stale question bank"]}`))
	}))

	result, err := client.Precheck(context.Background(), "r-9")
	require.NoError(t, err)
	assert.True(t, result.Blocked())
	assert.Equal(t, []string{"missing activity module: quiz"}, result.Errors)
	assert.Equal(t, []string{"stale question bank"}, result.Warnings)
}

func TestClient_Execute_PollsUntilFinished(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/restores/r-5/execute":
			w.WriteHeader(http.StatusAccepted)
		case r.Method == http.MethodGet && r.URL.Path == "/restores/r-5/progress":
			status := model.StatusExecuting
			if polls.Add(1) >= 3 {
				status = model.StatusFinishedOK
			}
			_ = json.NewEncoder(w).Encode(model.RestoreProgress{RestoreID: "r-5", Status: status})
		default:
			http.NotFound(w, r)
		}
	}))

	require.NoError(t, client.Execute(context.Background(), "r-5"))
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestClient_Execute_FinishedError(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		_ = json.NewEncoder(w).Encode(model.RestoreProgress{Status: model.StatusFinishedError})
	}))

	err := client.Execute(context.Background(), "r-6")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finished with error")
}

func TestClient_Execute_UnknownRestore(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		_ = json.NewEncoder(w).Encode(model.RestoreProgress{Status: model.StatusUnknown})
	}))

	err := client.Execute(context.Background(), "r-7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer known")
}

func TestClient_Execute_ContextCancelStopsPolling(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		_ = json.NewEncoder(w).Encode(model.RestoreProgress{Status: model.StatusExecuting})
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := client.Execute(ctx, "r-8")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Progress_BackfillsRestoreID(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restores/r-2/progress", r.URL.Path)
		_, _ = w.Write([]byte(`{"status": "executing", "percent": 12.5}`))
	}))

	progress, err := client.Progress(context.Background(), "r-2")
	require.NoError(t, err)
	assert.Equal(t, "r-2", progress.RestoreID)
	assert.Equal(t, model.StatusExecuting, progress.Status)
	assert.InDelta(t, 12.5, progress.Percent, 0.001)
}

func TestClient_Backup(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/backups", r.URL.Path)

		var req model.BackupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(42), req.CourseID)
		assert.True(t, req.IncludeUsers)

		_ = json.NewEncoder(w).Encode(model.BackupResult{Handle: "h-1", Filename: "backup.mbz", Size: 2048})
	}))

	result, err := client.Backup(context.Background(), model.BackupRequest{CourseID: 42, IncludeUsers: true})
	require.NoError(t, err)
	assert.Equal(t, "h-1", result.Handle)
	assert.Equal(t, "backup.mbz", result.Filename)
	assert.Equal(t, int64(2048), result.Size)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	t.Parallel()
	_, err := New(Options{})
	require.Error(t, err)
	assert.Panics(t, func() { MustNew(Options{BaseURL: "  "}) })
}
