// Package summary holds the domain types shared by the store, the remote
// client and the retrieval session: the summarization result as it appears
// on the wire, the composite topic identifier, and the request-day guard.
package summary

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the remote service's reported state for a summarization job.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in_progress"
	StatusError      Status = "error"
)

// Known reports whether s is one of the three wire statuses.
func (s Status) Known() bool {
	switch s {
	case StatusCompleted, StatusInProgress, StatusError:
		return true
	}
	return false
}

// Result is the summarization endpoint's response body. Summary is only
// populated when Status is completed; its content is untrusted text until
// it passes through render.Sanitize.
type Result struct {
	Status  Status `json:"status"`
	Summary string `json:"summary,omitempty"`
}

// DayFormat is the calendar-day layout used on the wire and in cache keys.
const DayFormat = "2006-01-02"

var (
	ErrBadDay    = errors.New("day must be formatted YYYY-MM-DD")
	ErrFutureDay = errors.New("day must be strictly before today")
)

// ValidDay checks that day parses as YYYY-MM-DD and falls strictly before
// now's calendar day. The comparison truncates to local midnight: summaries
// for the current day are rejected because the day's posts are still being
// written.
func ValidDay(day string, now time.Time) error {
	d, err := time.ParseInLocation(DayFormat, day, time.Local)
	if err != nil {
		return ErrBadDay
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if !d.Before(today) {
		return ErrFutureDay
	}
	return nil
}

// Yesterday returns the previous calendar day in DayFormat, the default
// request day.
func Yesterday(now time.Time) string {
	return now.AddDate(0, 0, -1).Format(DayFormat)
}

// Topic identifies a forum topic by the three numeric page parameters that
// together form its stable identifier.
type Topic struct {
	Cat    string
	Subcat string
	Post   string
}

// ID renders the composite identifier sent to the summarization service,
// e.g. "12#34#56".
func (t Topic) ID() string {
	return fmt.Sprintf("%s#%s#%s", t.Cat, t.Subcat, t.Post)
}

// Valid reports whether all three components are present and numeric.
func (t Topic) Valid() bool {
	for _, part := range []string{t.Cat, t.Subcat, t.Post} {
		if part == "" {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// ParseID is the inverse of ID.
func ParseID(id string) (Topic, error) {
	parts := strings.Split(id, "#")
	if len(parts) != 3 {
		return Topic{}, fmt.Errorf("topic id %q: want cat#subcat#post", id)
	}
	t := Topic{Cat: parts[0], Subcat: parts[1], Post: parts[2]}
	if !t.Valid() {
		return Topic{}, fmt.Errorf("topic id %q: components must be numeric", id)
	}
	return t, nil
}
