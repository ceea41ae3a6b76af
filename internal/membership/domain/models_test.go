package domain

import (
	"testing"
	"time"
)

func TestAddMonths(t *testing.T) {
	cases := []struct {
		name   string
		in     time.Time
		months int
		want   time.Time
	}{
		{"plain month", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"leap february clamp", time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC), 1, time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC)},
		{"non-leap february clamp", time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"year rollover", time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC), 3, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)},
		{"twelve months", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 12, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AddMonths(tc.in, tc.months); !got.Equal(tc.want) {
				t.Fatalf("AddMonths(%s, %d) = %s, want %s", tc.in, tc.months, got, tc.want)
			}
		})
	}
}

func TestStatusBillable(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusActive:    true,
		StatusPastDue:   true,
		StatusPaused:    false,
		StatusCancelled: false,
	} {
		if got := status.Billable(); got != want {
			t.Fatalf("%s.Billable() = %v, want %v", status, got, want)
		}
	}
}
