package audit

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gobeyondidentity/keyissuer/pkg/statuslog"
)

func TestFormatMessage_StatusRecord(t *testing.T) {
	ts := time.Date(2026, 2, 4, 15, 30, 0, 0, time.UTC)
	rec := statuslog.Record{
		Timestamp:  ts,
		Kind:       statuslog.KindPending,
		IP:         "10.0.0.1",
		Credential: "ks-abcdefghABCDEFGH",
		Message:    "credential issued, awaiting confirmation",
		RequestID:  "req-001",
	}

	got := string(FormatMessage(MessageFor(rec, FacLocal0, "host.local", "keyissuer")))

	// local0 (16) * 8 + info (6) = 134
	want := `<134>1 2026-02-04T15:30:00.000Z host.local keyissuer - PENDING ` +
		`[keyissuer credential="ks-abcdefghABCDEFGH" ip="10.0.0.1" request_id="req-001"] ` +
		`credential issued, awaiting confirmation`
	assert.Equal(t, want, got)
}

func TestFormatMessage_NilValues(t *testing.T) {
	got := string(FormatMessage(Message{Facility: FacLocal0, Severity: SeverityWarning}))
	assert.Equal(t, "<132>1 - - - - - -", got)
}

func TestFormatMessage_EscapesSDValues(t *testing.T) {
	m := Message{
		Facility: FacLocal0,
		Severity: SeverityInfo,
		SD: []SDElement{{
			ID:     "keyissuer",
			Params: []SDParam{{Name: "credential", Value: `a"b\c]d`}},
		}},
	}
	got := string(FormatMessage(m))
	assert.True(t, strings.Contains(got, `credential="a\"b\\c\]d"`), got)
}

func TestFormatMessage_HeaderFieldRules(t *testing.T) {
	m := Message{
		Facility:  FacLocal0,
		Severity:  SeverityInfo,
		Hostname:  "has space",
		AppName:   strings.Repeat("a", 60),
		MessageID: "FAILED",
	}
	got := string(FormatMessage(m))
	fields := strings.Fields(got)
	assert.Equal(t, "-", fields[2], "non-printable hostname becomes NILVALUE")
	assert.Len(t, fields[3], 48, "app name truncated to 48")
	assert.Equal(t, "FAILED", fields[5])
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		kind statuslog.Kind
		want Severity
	}{
		{statuslog.KindPending, SeverityInfo},
		{statuslog.KindSuccessful, SeverityNotice},
		{statuslog.KindRejected, SeverityWarning},
		{statuslog.KindFailed, SeverityWarning},
		{statuslog.KindClientError, SeverityWarning},
		{statuslog.Kind("BOGUS"), SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, SeverityFor(tt.kind))
		})
	}
	assert.Equal(t, "NOTICE", SeverityNotice.String())
	assert.Equal(t, "UNKNOWN", Severity(9).String())
}
