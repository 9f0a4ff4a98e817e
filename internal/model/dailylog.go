package model

import "strings"

// LogDateFormat is the calendar-date layout used as a daily log's
// stable identity. The date string, not a remote page id, keys the
// projection and the event stream for logs.
const LogDateFormat = "2006-01-02"

// DailyLog is one day's journal entry. Date is its identity; RemoteID
// is the last known remote page id, empty until the first successful
// sync or hydration. Highlights and Gratitude are lists of short
// entries; storage and the remote service flatten them to one line
// each (see JoinLines/SplitLines).
type DailyLog struct {
	Date       string   `json:"date"`
	RemoteID   string   `json:"remote_id,omitempty"`
	Mood       int      `json:"mood"`
	Energy     int      `json:"energy"`
	SleepHours float64  `json:"sleep_hours"`
	Highlights []string `json:"highlights,omitempty"`
	Gratitude  []string `json:"gratitude,omitempty"`
	Notes      string   `json:"notes"`
}

// JoinLines flattens a list of entries to a newline-separated string,
// the form the snapshot tables and remote text properties store.
func JoinLines(entries []string) string {
	return strings.Join(entries, "\n")
}

// SplitLines is the inverse of JoinLines: blank lines and surrounding
// whitespace are dropped, and an empty input yields a nil slice.
func SplitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
