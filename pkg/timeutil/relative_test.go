package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelativeTo(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"same instant", now, "now"},
		{"sub-second future", now.Add(300 * time.Millisecond), "now"},
		{"minutes ago", now.Add(-5 * time.Minute), "5 minutes ago"},
		{"one hour ago", now.Add(-time.Hour), "1 hour ago"},
		{"in hours", now.Add(2 * time.Hour), "in 2 hours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeTo(tt.t, now))
		})
	}
}
