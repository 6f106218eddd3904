/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Configuration errors - Missing or unsupported calendar/rule setup.
     Fatal for the call that hit them, returned immediately.
  2. Data errors - Bad input for one employee/day (negative hours,
     inconsistent rule or holiday reference). Recorded on the result;
     evaluation of the remaining days continues.
  3. Store errors - Idempotence conflicts and missing rows.

USAGE:
  if generic.IsConfigurationError(err) {
      // surface to the operator, nothing was generated
  }

  for _, e := range result.Errors {
      var de *generic.DataError
      if errors.As(e, &de) { ... de.EmployeeID, de.Date ... }
  }

SEE ALSO:
  - calendar/generator.go: Raises configuration errors
  - overtime/engine.go: Records data errors
  - store.go: Uses the store errors
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration is the root of every configuration failure.
	ErrConfiguration = errors.New("configuration error")

	// ErrData is the root of every per-day/per-employee input failure.
	ErrData = errors.New("data error")

	// ErrNegativeHours is returned for a day reported with hours below zero.
	ErrNegativeHours = errors.New("negative hours")

	// ErrInconsistentReference is returned when a rule or holiday cannot be applied as configured.
	ErrInconsistentReference = errors.New("inconsistent rule or holiday reference")

	// ErrPeriodExists is returned when a pay period with the same bounds is already stored.
	ErrPeriodExists = errors.New("pay period already exists")

	// ErrPeriodNotFound is returned when a referenced pay period doesn't exist.
	ErrPeriodNotFound = errors.New("pay period not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError describes which setting is wrong.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s=%q: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// NewConfigurationError is shorthand for the common case.
func NewConfigurationError(field, value, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// DataError identifies the employee, day and rule/holiday an input failure belongs to.
type DataError struct {
	EmployeeID EmployeeID
	Date       Date
	RuleID     string
	HolidayID  string
	Reason     string
	Err        error
}

func (e *DataError) Error() string {
	msg := fmt.Sprintf("data error: employee %s", e.EmployeeID)
	if !e.Date.IsZero() {
		msg += " on " + e.Date.String()
	}
	if e.RuleID != "" {
		msg += " rule " + e.RuleID
	}
	if e.HolidayID != "" {
		msg += " holiday " + e.HolidayID
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap exposes both ErrData and the specific cause.
func (e *DataError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrData}
	}
	return []error{ErrData, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigurationError returns true for missing or unsupported configuration.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsDataError returns true for recorded per-day input failures.
func IsDataError(err error) bool {
	return errors.Is(err, ErrData)
}

// IsConflict returns true if the write collided with an existing row.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPeriodExists)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return IsConfigurationError(err) ||
		IsDataError(err) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPeriodNotFound)
}
