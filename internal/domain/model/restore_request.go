package model

import (
	"errors"
	"strings"
)

// RestoreRequest asks the orchestrator to restore a backup archive into a
// course. The selector either names an existing course or a category to
// create one in.
type RestoreRequest struct {
	ArchiveHandle   string         `json:"archive_handle"`
	Selector        CourseSelector `json:"selector"`
	CourseFullname  string         `json:"course_fullname,omitempty"`
	CallbackURL     *string        `json:"callback_url,omitempty"`
	CallbackPayload *string        `json:"callback_payload,omitempty"`
}

// Validate validates the RestoreRequest fields.
func (r *RestoreRequest) Validate() error {
	if strings.TrimSpace(r.ArchiveHandle) == "" {
		return errors.New("archive handle is required")
	}
	if r.Selector.Empty() {
		return ErrInvalidTarget
	}
	if r.CallbackURL != nil {
		if err := ValidateCallbackURL(*r.CallbackURL); err != nil {
			return err
		}
	}
	if r.CallbackPayload != nil && r.CallbackURL == nil {
		return errors.New("callback payload requires a callback url")
	}
	return nil
}
