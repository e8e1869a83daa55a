package scheduler

import (
	"fmt"
	"time"
)

const (
	minOffsetMinutes = -12 * 60
	maxOffsetMinutes = 14 * 60
	offsetStep       = 30

	wakingStartHour = 10
	wakingEndHour   = 22

	timezoneSampleLimit = 20
)

// DetectOffsetMinutes infers the user's UTC offset from historical message
// timestamps. Every half-hour offset in [-12h, +14h] is scored by how many
// timestamps land in normal waking hours at that offset; the highest count
// wins, first-found on ties.
func DetectOffsetMinutes(timestamps []time.Time) int {
	if len(timestamps) > timezoneSampleLimit {
		timestamps = timestamps[len(timestamps)-timezoneSampleLimit:]
	}
	if len(timestamps) == 0 {
		return 0
	}

	bestOffset := 0
	bestCount := -1
	for offset := minOffsetMinutes; offset <= maxOffsetMinutes; offset += offsetStep {
		count := 0
		for _, ts := range timestamps {
			hour := localHour(ts, offset)
			if hour >= wakingStartHour && hour < wakingEndHour {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestOffset = offset
		}
	}
	return bestOffset
}

// DetectTimezone formats the inferred offset as a "UTC±N" label.
func DetectTimezone(timestamps []time.Time) string {
	return FormatOffset(DetectOffsetMinutes(timestamps))
}

// FormatOffset renders offset minutes as "UTC-5", "UTC+5:30", or "UTC".
func FormatOffset(minutes int) string {
	if minutes == 0 {
		return "UTC"
	}
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	hours, rem := minutes/60, minutes%60
	if rem == 0 {
		return fmt.Sprintf("UTC%s%d", sign, hours)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, hours, rem)
}

// ParseOffset is the inverse of FormatOffset, returning 0 for anything
// unparseable.
func ParseOffset(label string) int {
	if label == "" || label == "UTC" {
		return 0
	}
	var hours, minutes int
	if _, err := fmt.Sscanf(label, "UTC%d:%d", &hours, &minutes); err == nil {
		if hours < 0 {
			return hours*60 - minutes
		}
		return hours*60 + minutes
	}
	if _, err := fmt.Sscanf(label, "UTC%d", &hours); err == nil {
		return hours * 60
	}
	return 0
}

// localHour returns the hour of ts shifted by an offset in minutes.
func localHour(ts time.Time, offsetMinutes int) int {
	return ts.UTC().Add(time.Duration(offsetMinutes) * time.Minute).Hour()
}
