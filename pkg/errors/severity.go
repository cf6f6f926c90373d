// Package errors provides severity-aware error types.
package errors

import "fmt"

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// GridError is a structured error with context.
type GridError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	JobID       string   `json:"job_id,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

func (e *GridError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("[%s] %s: %s (job: %s)", e.Severity, e.Code, e.Message, e.JobID)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

// Error codes
const (
	ErrCodeInvalidJobData  = "INVALID_JOB_DATA"
	ErrCodeMissingGridData = "MISSING_GRID_DATA"
	ErrCodeFetchFailed     = "FETCH_FAILED"
	ErrCodeSLABreach       = "SLA_BREACH"
)

// NewInvalidJobDataError creates an error for a job field outside its allowed range.
func NewInvalidJobDataError(field, jobID string, detail string) *GridError {
	return &GridError{
		Code:        ErrCodeInvalidJobData,
		Message:     fmt.Sprintf("Invalid job field %s: %s", field, detail),
		Severity:    SeverityError,
		JobID:       jobID,
		Recoverable: false,
	}
}

// NewMissingGridDataError creates an error for a failed grid data fetch.
// Recoverable: callers substitute the configured fallback snapshot.
func NewMissingGridDataError(source string, cause error) *GridError {
	return &GridError{
		Code:        ErrCodeMissingGridData,
		Message:     fmt.Sprintf("Grid data unavailable from %s: %v", source, cause),
		Severity:    SeverityWarning,
		Recoverable: true,
	}
}
