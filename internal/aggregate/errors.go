package aggregate

import (
	"errors"
	"fmt"
)

// ErrInvalidRange matches every request-level range validation failure,
// including a missing parameter.
var ErrInvalidRange = errors.New("invalid date range")

// Range failure reasons reported to HTTP clients.
const (
	ReasonMissingStartDate   = "missing_start_date"
	ReasonMissingEndDate     = "missing_end_date"
	ReasonMalformedStartDate = "malformed_start_date"
	ReasonMalformedEndDate   = "malformed_end_date"
	ReasonStartAfterEnd      = "start_after_end"
	ReasonRangeTooLarge      = "range_too_large"
)

// MalformedDateError reports a stored record whose date cannot be parsed.
// It never aborts an aggregation; the record is skipped.
type MalformedDateError struct {
	Index int
	Value string
	Err   error
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("record %d: malformed date %q: %v", e.Index, e.Value, e.Err)
}

func (e *MalformedDateError) Unwrap() error { return e.Err }

// InvalidRangeError rejects a whole range request.
type InvalidRangeError struct {
	reason string
	Start  string
	End    string
}

func (e *InvalidRangeError) Error() string {
	switch e.reason {
	case ReasonMalformedStartDate:
		return fmt.Sprintf("start_date %q is not a YYYY-MM-DD date", e.Start)
	case ReasonMalformedEndDate:
		return fmt.Sprintf("end_date %q is not a YYYY-MM-DD date", e.End)
	case ReasonStartAfterEnd:
		return fmt.Sprintf("start_date %s is after end_date %s", e.Start, e.End)
	case ReasonRangeTooLarge:
		return fmt.Sprintf("range %s..%s is too large", e.Start, e.End)
	}
	return ErrInvalidRange.Error()
}

// Reason returns the enumerated failure reason.
func (e *InvalidRangeError) Reason() string { return e.reason }

func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

// MissingParameterError reports a required range parameter that was not sent.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %s", e.Name)
}

func (e *MissingParameterError) Reason() string {
	return "missing_" + e.Name
}

func (e *MissingParameterError) Is(target error) bool { return target == ErrInvalidRange }

// Reason extracts the enumerated reason of a range validation error, or ""
// when err is not one.
func Reason(err error) string {
	var r interface{ Reason() string }
	if errors.As(err, &r) {
		return r.Reason()
	}
	return ""
}
