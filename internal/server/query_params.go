package server

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseOptionalTime accepts RFC3339 or a bare date. Bare dates resolve to the
// start of the day, or its last nanosecond when endOfDay is set.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}

// parseCyclePeriod reads both cycle bounds as calendar days. The service
// extends the end date to the end of that day when matching.
func parseCyclePeriod(req payCycleRequest) (time.Time, time.Time, error) {
	start, err := parseOptionalTime(req.StartDate, false)
	if err != nil || start == nil {
		return time.Time{}, time.Time{}, newValidationError("start_date", "invalid_start_date", "invalid start_date")
	}
	end, err := parseOptionalTime(req.EndDate, false)
	if err != nil || end == nil {
		return time.Time{}, time.Time{}, newValidationError("end_date", "invalid_end_date", "invalid end_date")
	}
	return *start, *end, nil
}
