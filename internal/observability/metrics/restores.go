// Package metrics emits standardised restore lifecycle metrics.
package metrics

import (
	"time"

	obserrors "github.com/campuskit/courserestore/internal/observability/errors"
	"github.com/campuskit/courserestore/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// RestoreMetric captures details about a restore lifecycle event.
type RestoreMetric struct {
	Stage    string // "queued", "executed", "completed", "callback"
	Result   string
	Duration time.Duration
	Err      error
}

// EmitRestoreLifecycle emits standardised restore lifecycle metrics.
func EmitRestoreLifecycle(sink statsd.Sink, in RestoreMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"stage":  in.Stage,
		"result": in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("restore.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("restore.duration", in.Duration, cloneTags(tags))
	}
}

func cloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
