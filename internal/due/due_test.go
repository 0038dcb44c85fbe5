package due

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	// Wednesday 2024-01-10 14:20 UTC.
	now := time.Date(2024, 1, 10, 14, 20, 0, 0, time.UTC)

	tests := []struct {
		phrase string
		want   time.Time
		ok     bool
	}{
		{"tomorrow", time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC), true},
		{"  Tomorrow ", time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC), true},
		{"next monday", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), true},
		{"next wednesday", time.Date(2024, 1, 17, 9, 0, 0, 0, time.UTC), true},
		{"Next Thursday", time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC), true},
		{"3pm", time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC), true},
		{"10:30am", time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC), true},
		{"12am", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), true},
		{"12pm", time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), true},
		{"7 PM", time.Date(2024, 1, 10, 19, 0, 0, 0, time.UTC), true},
		{"15:30", time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC), true},
		{"2024-02-01", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-02-01 08:15", time.Date(2024, 2, 1, 8, 15, 0, 0, time.UTC), true},
		{"2024-02-01T08:15:00Z", time.Date(2024, 2, 1, 8, 15, 0, 0, time.UTC), true},
		{"02/01/2024", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"Feb 1, 2024", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"February 1, 2024", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"13pm", time.Time{}, false},
		{"25:00", time.Time{}, false},
		{"someday", time.Time{}, false},
		{"next week", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, ok := Parse(tt.phrase, now)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.phrase, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.phrase, got, tt.want)
			}
		})
	}
}

func TestParseUsesNowLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	// 23:00 local on Dec 31 is already Jan 1 in UTC.
	now := time.Date(2023, 12, 31, 23, 0, 0, 0, loc)

	got, ok := Parse("tomorrow", now)
	if !ok {
		t.Fatal("Parse failed")
	}
	want := time.Date(2024, 1, 1, 9, 0, 0, 0, loc)
	if !got.Equal(want) || got.Location() != loc {
		t.Errorf("Parse = %v, want %v", got, want)
	}
}
