package timeaxis

import (
	"testing"
	"time"
)

func TestPositionToLocalTime(t *testing.T) {
	tests := []struct {
		percent float64
		hour    int
		minute  int
	}{
		{0, 0, 0},
		{50, 12, 0},
		{30, 7, 12},  // 30% of 1440 = 432 minutes
		{70, 16, 48}, // 70% of 1440 = 1008 minutes
		{100, 23, 59},
		{-25, 0, 0},  // clamped
		{140, 23, 59}, // clamped
	}

	for _, tc := range tests {
		got := PositionToLocalTime(tc.percent)
		if got.Hour != tc.hour || got.Minute != tc.minute {
			t.Errorf("PositionToLocalTime(%v) = %02d:%02d, want %02d:%02d",
				tc.percent, got.Hour, got.Minute, tc.hour, tc.minute)
		}
	}
}

func TestLocalTimeToUTCReinterpretsCalendarFields(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tz database unavailable")
	}

	// The reference day is in a non-UTC zone; the result must carry the
	// wall-clock reading as UTC fields, not shift it.
	ref := time.Date(2024, 6, 1, 9, 30, 0, 0, loc)
	got := LocalTimeToUTC(LocalTime{Hour: 14, Minute: 45}, ref)

	want := time.Date(2024, 6, 1, 14, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("LocalTimeToUTC = %v, want %v", got, want)
	}
}

func TestPercentForInstantRoundTrip(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, percent := range []float64{0, 12.5, 30, 50, 70, 99} {
		instant := PositionToUTC(percent, ref)
		got := PercentForInstant(instant)
		if diff := got - percent; diff > 0.1 || diff < -0.1 {
			t.Errorf("round trip %v -> %v", percent, got)
		}
	}
}

func TestPercentForInstantClamped(t *testing.T) {
	got := PercentForInstant(time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC))
	if got > 100 {
		t.Errorf("percent = %v, want <= 100", got)
	}
}

func TestPercentForFramePrefersMetadataTimestamp(t *testing.T) {
	batch := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	meta := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

	if got := PercentForFrame(meta, batch); got != 75 {
		t.Errorf("with metadata: %v, want 75", got)
	}
	if got := PercentForFrame(time.Time{}, batch); got != 25 {
		t.Errorf("fallback to batch: %v, want 25", got)
	}
}
