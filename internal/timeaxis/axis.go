// Package timeaxis converts between positions on a fixed 24-hour axis and
// timestamps. All functions are pure.
package timeaxis

import "time"

// MinutesPerDay is the length of the axis.
const MinutesPerDay = 1440

// LocalTime is a wall-clock reading on the axis.
type LocalTime struct {
	Hour   int
	Minute int
}

// ClampPercent forces a position into [0, 100].
func ClampPercent(percent float64) float64 {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// PositionToLocalTime maps a percentage along the axis to a wall-clock
// hour and minute. The position is clamped before use.
func PositionToLocalTime(percent float64) LocalTime {
	minutes := int(ClampPercent(percent) * MinutesPerDay / 100)
	if minutes >= MinutesPerDay {
		minutes = MinutesPerDay - 1
	}
	return LocalTime{Hour: minutes / 60, Minute: minutes % 60}
}

// LocalTimeToUTC stamps a wall-clock reading on the reference day's calendar
// date as a UTC instant. This is a deliberate calendar-field reinterpretation,
// not a timezone conversion: the instant's UTC fields equal the local reading,
// matching the convention that all capture timestamps are carried as UTC and
// rendered back to local time for display.
func LocalTimeToUTC(lt LocalTime, referenceDay time.Time) time.Time {
	y, m, d := referenceDay.Date()
	return time.Date(y, m, d, lt.Hour, lt.Minute, 0, 0, time.UTC)
}

// PositionToUTC composes PositionToLocalTime and LocalTimeToUTC.
func PositionToUTC(percent float64, referenceDay time.Time) time.Time {
	return LocalTimeToUTC(PositionToLocalTime(percent), referenceDay)
}

// PercentForInstant is the reverse mapping, used to place the "now" marker
// and frames on the axis. Only the instant's clock fields matter.
func PercentForInstant(t time.Time) float64 {
	minutes := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60
	return ClampPercent(minutes / MinutesPerDay * 100)
}

// PercentForFrame places a frame using its device metadata timestamp when
// present, falling back to the batch timestamp.
func PercentForFrame(metadataTS, batchTS time.Time) float64 {
	if !metadataTS.IsZero() {
		return PercentForInstant(metadataTS)
	}
	return PercentForInstant(batchTS)
}
