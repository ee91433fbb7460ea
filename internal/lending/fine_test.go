// internal/lending/fine_test.go
package lending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

const testRate = 0.60

func TestCalculateFine(t *testing.T) {
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		at       time.Time
		expected float64
	}{
		{
			name:     "returned early",
			at:       due.Add(-48 * time.Hour),
			expected: 0,
		},
		{
			name:     "returned exactly on the due instant",
			at:       due,
			expected: 0,
		},
		{
			name:     "one second late accrues nothing",
			at:       due.Add(time.Second),
			expected: 0,
		},
		{
			name:     "just under one day late accrues nothing",
			at:       due.Add(24*time.Hour - time.Second),
			expected: 0,
		},
		{
			name:     "exactly one day late",
			at:       due.Add(24 * time.Hour),
			expected: 0.60,
		},
		{
			name:     "two and a half days late counts two whole days",
			at:       time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC),
			expected: 1.20,
		},
		{
			name:     "ten days late",
			at:       due.Add(10 * 24 * time.Hour),
			expected: 6.00,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateFine(due, tc.at, testRate)
			assert.InDelta(t, tc.expected, got, 1e-9)
		})
	}
}

func TestDaysLeft(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{
			name:     "one hour before due still counts one day",
			now:      time.Date(2024, 1, 9, 23, 0, 0, 0, time.UTC),
			expected: 1,
		},
		{
			name:     "exactly at due",
			now:      due,
			expected: 0,
		},
		{
			name:     "past due floors at zero",
			now:      time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
			expected: 0,
		},
		{
			name:     "exactly two days out",
			now:      due.Add(-48 * time.Hour),
			expected: 2,
		},
		{
			name:     "a second over one day rounds up to two",
			now:      due.Add(-24*time.Hour - time.Second),
			expected: 2,
		},
		{
			name:     "full loan term",
			now:      due.AddDate(0, 0, -30),
			expected: 30,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DaysLeft(due, tc.now))
		})
	}
}

func TestCalculateFineProperties(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("never negative", rapid.MakeCheck(func(t *rapid.T) {
		offset := rapid.Int64Range(-1e9, 1e9).Draw(t, "offsetSeconds")
		at := base.Add(time.Duration(offset) * time.Second)
		if fine := CalculateFine(base, at, testRate); fine < 0 {
			t.Fatalf("negative fine %v for offset %d", fine, offset)
		}
	}))

	t.Run("zero at or before due", rapid.MakeCheck(func(t *rapid.T) {
		offset := rapid.Int64Range(0, 1e9).Draw(t, "offsetSeconds")
		at := base.Add(-time.Duration(offset) * time.Second)
		if fine := CalculateFine(base, at, testRate); fine != 0 {
			t.Fatalf("fine %v for a return %ds before due", fine, offset)
		}
	}))

	t.Run("never decreases as the return slips", rapid.MakeCheck(func(t *rapid.T) {
		first := rapid.Int64Range(0, 1e8).Draw(t, "firstSeconds")
		extra := rapid.Int64Range(0, 1e8).Draw(t, "extraSeconds")
		early := CalculateFine(base, base.Add(time.Duration(first)*time.Second), testRate)
		late := CalculateFine(base, base.Add(time.Duration(first+extra)*time.Second), testRate)
		if late < early {
			t.Fatalf("fine dropped from %v to %v when the return slipped", early, late)
		}
	}))
}

func TestDaysLeftProperties(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("never negative", rapid.MakeCheck(func(t *rapid.T) {
		offset := rapid.Int64Range(-1e9, 1e9).Draw(t, "offsetSeconds")
		if left := DaysLeft(base, base.Add(time.Duration(offset)*time.Second)); left < 0 {
			t.Fatalf("negative days left %d", left)
		}
	}))

	t.Run("positive while the due date is ahead", rapid.MakeCheck(func(t *rapid.T) {
		offset := rapid.Int64Range(1, 1e9).Draw(t, "offsetSeconds")
		if left := DaysLeft(base, base.Add(-time.Duration(offset)*time.Second)); left < 1 {
			t.Fatalf("days left %d with %ds still to go", left, offset)
		}
	}))
}
