package scheduler

import (
	"testing"
	"time"
)

// stampsAtLocalHours builds UTC timestamps whose local hours under the given
// offset are the provided values.
func stampsAtLocalHours(offsetMinutes int, localHours []int) []time.Time {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	stamps := make([]time.Time, 0, len(localHours))
	for i, hour := range localHours {
		local := base.AddDate(0, 0, i).Add(time.Duration(hour) * time.Hour)
		stamps = append(stamps, local.Add(-time.Duration(offsetMinutes)*time.Minute))
	}
	return stamps
}

func TestDetectTimezoneMinusFive(t *testing.T) {
	// 20 messages clustering around local hour 14 under UTC-5, with the
	// earliest and latest activity pinning the waking window edges.
	hours := []int{10, 21}
	for len(hours) < 20 {
		hours = append(hours, 14)
	}
	stamps := stampsAtLocalHours(-5*60, hours)

	if got := DetectTimezone(stamps); got != "UTC-5" {
		t.Fatalf("expected UTC-5, got %s", got)
	}
}

func TestDetectOffsetEmptyInput(t *testing.T) {
	if got := DetectOffsetMinutes(nil); got != 0 {
		t.Fatalf("expected 0 for no data, got %d", got)
	}
}

func TestDetectOffsetUsesLastTwenty(t *testing.T) {
	// 30 old stamps pointing at +8, then 20 recent ones pinning -5; only the
	// last 20 should count.
	old := stampsAtLocalHours(8*60, repeatHours(3, 30))
	recent := stampsAtLocalHours(-5*60, append([]int{10, 21}, repeatHours(14, 18)...))

	got := DetectOffsetMinutes(append(old, recent...))
	if got != -5*60 {
		t.Fatalf("expected -300, got %d", got)
	}
}

func repeatHours(hour, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = hour
	}
	return out
}

func TestFormatOffset(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "UTC"},
		{-300, "UTC-5"},
		{330, "UTC+5:30"},
		{840, "UTC+14"},
	}
	for _, tc := range cases {
		if got := FormatOffset(tc.minutes); got != tc.want {
			t.Fatalf("%d: expected %s, got %s", tc.minutes, tc.want, got)
		}
	}
}

func TestParseOffsetRoundTrip(t *testing.T) {
	for _, minutes := range []int{0, -300, 330, -570, 840} {
		if got := ParseOffset(FormatOffset(minutes)); got != minutes {
			t.Fatalf("round trip failed for %d: got %d", minutes, got)
		}
	}
	if got := ParseOffset("garbage"); got != 0 {
		t.Fatalf("expected 0 for garbage, got %d", got)
	}
}

func TestQuietHoursWraparound(t *testing.T) {
	quiet := DefaultQuietHours()
	for _, hour := range []int{23, 0, 3, 6} {
		if !quiet.Contains(hour) {
			t.Fatalf("expected hour %d inside quiet window", hour)
		}
	}
	for _, hour := range []int{7, 12, 22} {
		if quiet.Contains(hour) {
			t.Fatalf("expected hour %d outside quiet window", hour)
		}
	}
}

func TestQuietHoursNonWrapping(t *testing.T) {
	quiet := QuietHours{StartHour: 13, EndHour: 15}
	if !quiet.Contains(13) || !quiet.Contains(14) {
		t.Fatal("expected early afternoon inside window")
	}
	if quiet.Contains(15) || quiet.Contains(12) {
		t.Fatal("expected boundary hours outside window")
	}
}
