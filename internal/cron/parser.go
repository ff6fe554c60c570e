package cron

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a 5-field cron expression.
// Returns an error if the expression does not have exactly five fields
// or any field contains invalid syntax or out-of-range values.
func Parse(expr string) (*Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron: expected 5 fields, got %d in %q", len(fields), expr)
	}

	minutes, err := parseField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("cron: minute field: %w", err)
	}
	hours, err := parseField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("cron: hour field: %w", err)
	}
	daysOfMonth, err := parseField(fields[2], 1, 31)
	if err != nil {
		return nil, fmt.Errorf("cron: day-of-month field: %w", err)
	}
	months, err := parseField(fields[3], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("cron: month field: %w", err)
	}
	daysOfWeek, err := parseField(fields[4], 0, 6)
	if err != nil {
		return nil, fmt.Errorf("cron: day-of-week field: %w", err)
	}

	return &Schedule{
		minutes:     minutes,
		hours:       hours,
		daysOfMonth: daysOfMonth,
		months:      months,
		daysOfWeek:  daysOfWeek,
		domStar:     fields[2] == "*",
		dowStar:     fields[4] == "*",
		expr:        expr,
	}, nil
}

// parseField expands one cron field into its set of valid values.
func parseField(field string, min, max int) (map[int]bool, error) {
	values := make(map[int]bool)

	for _, part := range strings.Split(field, ",") {
		if part == "" {
			return nil, fmt.Errorf("empty list element in %q", field)
		}
		if err := parsePart(part, min, max, values); err != nil {
			return nil, err
		}
	}

	return values, nil
}

// parsePart handles a single list element: "*", "*/n", "a", "a-b", "a-b/n".
func parsePart(part string, min, max int, values map[int]bool) error {
	rangeExpr, step := part, 1

	if idx := strings.IndexByte(part, '/'); idx >= 0 {
		rangeExpr = part[:idx]
		s, err := strconv.Atoi(part[idx+1:])
		if err != nil || s < 1 {
			return fmt.Errorf("invalid step in %q", part)
		}
		step = s
	}

	lo, hi := min, max
	switch {
	case rangeExpr == "*":
		// Full range.
	case strings.Contains(rangeExpr, "-"):
		bounds := strings.SplitN(rangeExpr, "-", 2)
		var err error
		if lo, err = strconv.Atoi(bounds[0]); err != nil {
			return fmt.Errorf("invalid range start in %q", part)
		}
		if hi, err = strconv.Atoi(bounds[1]); err != nil {
			return fmt.Errorf("invalid range end in %q", part)
		}
		if lo > hi {
			return fmt.Errorf("inverted range in %q", part)
		}
	default:
		v, err := strconv.Atoi(rangeExpr)
		if err != nil {
			return fmt.Errorf("invalid value %q", part)
		}
		lo, hi = v, v
	}

	if lo < min || hi > max {
		return fmt.Errorf("value out of range [%d,%d] in %q", min, max, part)
	}

	for v := lo; v <= hi; v += step {
		values[v] = true
	}
	return nil
}
