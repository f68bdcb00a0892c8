package models

import "time"

// PrayerNames lists the tracked prayers in canonical day order. Completion
// records and timing listings follow this order.
var PrayerNames = []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

// Snapshot is a cached copy of server-computed prayer timings for one
// location and one calendar day. Date, LastFetched and ExpiresAt are stamped
// by the client; everything else comes from the server verbatim.
type Snapshot struct {
	Timings     map[string]string `json:"timings"`
	Method      int               `json:"method"`
	School      int               `json:"school"`
	Date        string            `json:"date"` // YYYY-MM-DD, local calendar day of the fetch
	LastFetched time.Time         `json:"last_fetched"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// CompletionRecord tracks which prayers were completed on one day.
// Records are created with defaults on first access and never deleted.
type CompletionRecord struct {
	Date      string          `json:"date"`
	Completed map[string]bool `json:"completed"`
}

// Done counts completed prayers in the record.
func (r *CompletionRecord) Done() int {
	n := 0
	for _, name := range PrayerNames {
		if r.Completed[name] {
			n++
		}
	}
	return n
}

// FullyCompleted reports whether every tracked prayer is marked done.
func (r *CompletionRecord) FullyCompleted() bool {
	return len(PrayerNames) > 0 && r.Done() == len(PrayerNames)
}
