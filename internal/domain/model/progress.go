package model

// RestoreStatus describes where an engine restore currently stands.
type RestoreStatus string

const (
	// StatusAwaiting means the restore is queued but not yet executing.
	StatusAwaiting RestoreStatus = "awaiting"
	// StatusExecuting means the engine is actively restoring the course.
	StatusExecuting RestoreStatus = "executing"
	// StatusFinishedOK means the restore completed successfully.
	StatusFinishedOK RestoreStatus = "finished_ok"
	// StatusFinishedError means the restore finished with an error.
	StatusFinishedError RestoreStatus = "finished_error"
	// StatusUnknown means the engine has no record of the restore.
	StatusUnknown RestoreStatus = "unknown"
)

// Terminal reports whether the status will never change again.
func (s RestoreStatus) Terminal() bool {
	return s == StatusFinishedOK || s == StatusFinishedError
}

// RestoreProgress is a point-in-time snapshot of an engine restore.
type RestoreProgress struct {
	RestoreID string        `json:"restore_id"`
	Status    RestoreStatus `json:"status"`
	Percent   float64       `json:"percent"`
}
