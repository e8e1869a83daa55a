package scheduler

// QuietHours is a local-time window during which no proactive send of any
// kind is permitted. A wraparound window (Start > End) spans midnight.
type QuietHours struct {
	StartHour int
	EndHour   int
}

// DefaultQuietHours covers 23:00-07:00 local.
func DefaultQuietHours() QuietHours {
	return QuietHours{StartHour: 23, EndHour: 7}
}

// Contains reports whether the local hour falls inside the window.
func (q QuietHours) Contains(localHour int) bool {
	if q.StartHour == q.EndHour {
		return false
	}
	if q.StartHour > q.EndHour {
		return localHour >= q.StartHour || localHour < q.EndHour
	}
	return localHour >= q.StartHour && localHour < q.EndHour
}
