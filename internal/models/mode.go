package models

type submissionKind int

const (
	submissionNew submissionKind = iota
	submissionEdit
)

// SubmissionMode is either New or Edit(userID). It is decided once when the
// request is decoded and never re-derived from the raw body.
type SubmissionMode struct {
	kind   submissionKind
	userID string
}

// NewSubmission creates fresh user, survey and score records
func NewSubmission() SubmissionMode {
	return SubmissionMode{kind: submissionNew}
}

// EditSubmission updates the records that belong to userID
func EditSubmission(userID string) SubmissionMode {
	return SubmissionMode{kind: submissionEdit, userID: userID}
}

// ModeFor maps the request flags to a mode. Edit requires both the flag and an id.
func ModeFor(isEdit bool, userID string) SubmissionMode {
	if isEdit && userID != "" {
		return EditSubmission(userID)
	}
	return NewSubmission()
}

// IsEdit reports whether this is Edit(userID)
func (m SubmissionMode) IsEdit() bool {
	return m.kind == submissionEdit
}

// UserID is only set in edit mode
func (m SubmissionMode) UserID() string {
	return m.userID
}

func (m SubmissionMode) String() string {
	if m.IsEdit() {
		return "edit(" + m.userID + ")"
	}
	return "new"
}
