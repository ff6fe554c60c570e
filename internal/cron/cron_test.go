package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"too few fields", "* * * *"},
		{"too many fields", "* * * * * *"},
		{"empty", ""},
		{"minute out of range", "60 * * * *"},
		{"hour out of range", "0 24 * * *"},
		{"day zero", "0 0 0 * *"},
		{"month out of range", "0 0 1 13 *"},
		{"weekday out of range", "0 0 * * 7"},
		{"garbage value", "x * * * *"},
		{"inverted range", "30-10 * * * *"},
		{"zero step", "*/0 * * * *"},
		{"empty list element", "1,,2 * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestParseAccepts(t *testing.T) {
	for _, expr := range []string{
		"* * * * *",
		"0 * * * *",
		"*/15 * * * *",
		"0 9-17 * * 1-5",
		"0,30 8,20 1 * *",
		"5 4 */2 1-6 0",
	} {
		_, err := Parse(expr)
		assert.NoError(t, err, expr)
	}
}

func TestNext(t *testing.T) {
	base := time.Date(2026, time.March, 9, 10, 30, 45, 0, time.UTC) // a Monday

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			"every minute",
			"* * * * *",
			time.Date(2026, time.March, 9, 10, 31, 0, 0, time.UTC),
		},
		{
			"top of hour",
			"0 * * * *",
			time.Date(2026, time.March, 9, 11, 0, 0, 0, time.UTC),
		},
		{
			"quarter past",
			"15 * * * *",
			time.Date(2026, time.March, 9, 11, 15, 0, 0, time.UTC),
		},
		{
			"daily at midnight",
			"0 0 * * *",
			time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			"weekdays at nine",
			"0 9 * * 1-5",
			time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			"first of month",
			"0 0 1 * *",
			time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"sunday only",
			"0 12 * * 0",
			time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Next(base))
		})
	}
}

func TestNextIsStrictlyAfter(t *testing.T) {
	s, err := Parse("30 10 * * *")
	require.NoError(t, err)

	// Exactly at a firing time: the same minute is not returned.
	at := time.Date(2026, time.March, 9, 10, 30, 0, 0, time.UTC)
	next := s.Next(at)
	assert.Equal(t, time.Date(2026, time.March, 10, 10, 30, 0, 0, time.UTC), next)
}

func TestDayOfMonthOrDayOfWeek(t *testing.T) {
	// Both restricted: either match fires (standard cron semantics).
	s, err := Parse("0 0 13 * 5")
	require.NoError(t, err)

	// 2026-03-09 is a Monday; the next firing is Friday the 13th of March,
	// which satisfies both, but a plain Friday would fire too.
	base := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	next := s.Next(base)
	assert.Equal(t, time.Date(2026, time.March, 13, 0, 0, 0, 0, time.UTC), next)

	// After the 13th, the next plain Friday (the 20th) fires on the
	// day-of-week leg alone.
	next = s.Next(next)
	assert.Equal(t, time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC), next)
}

func TestImpossibleDateReturnsZero(t *testing.T) {
	s, err := Parse("0 0 30 2 *")
	require.NoError(t, err)

	next := s.Next(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, next.IsZero())
}
