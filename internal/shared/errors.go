package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrTimeout       = fmt.Errorf("operation timed out")

	// Alarm and scheduling errors
	ErrAlarmNotFound     = fmt.Errorf("alarm not found")
	ErrDuplicateAlarm    = fmt.Errorf("duplicate alarm")
	ErrInvalidRecurrence = fmt.Errorf("invalid recurrence pattern")
	ErrInvalidTime       = fmt.Errorf("invalid time of day")
	ErrNoOccurrences     = fmt.Errorf("no upcoming occurrences")
	ErrNotMonitored      = fmt.Errorf("alarm is not monitored")
	ErrBudgetExhausted   = fmt.Errorf("daily adaptation budget exhausted")

	// Asset errors
	ErrAssetNotFound = fmt.Errorf("asset not found")
	ErrAssetFetch    = fmt.Errorf("asset fetch failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrStoreUnavailable   = fmt.Errorf("alarm store unavailable")
	ErrThrottled          = fmt.Errorf("request throttled")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
