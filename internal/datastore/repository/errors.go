package repository

import "errors"

// Sentinel errors returned by repositories. Callers match with errors.Is.
var (
	ErrAlertRuleNotFound = errors.New("alert rule not found")
	ErrAlertNotFound     = errors.New("alert instance not found")
	ErrClassNotFound     = errors.New("class not found")
	ErrStudentNotFound   = errors.New("student not found")

	// ErrDuplicateActiveAlert signals the dedup unique index rejected a
	// second active instance for the same (rule, entity) pair.
	ErrDuplicateActiveAlert = errors.New("active alert already exists for this rule and entity")
)
