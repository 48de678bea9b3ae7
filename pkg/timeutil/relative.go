package timeutil

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Relative describes t relative to the current time.
func Relative(t time.Time) string {
	return RelativeTo(t, time.Now())
}

// RelativeTo describes t relative to now: "5 minutes ago", "in 2 hours" or
// "now" within a second.
func RelativeTo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if t.After(now) {
		s := strings.TrimSpace(humanize.RelTime(now, t, "", ""))
		if s == "now" {
			return s
		}
		return "in " + s
	}
	return humanize.RelTime(t, now, "ago", "")
}
