// Package audit mirrors credential status records to the local syslog daemon
// as RFC 5424 messages with structured data.
package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/gobeyondidentity/keyissuer/pkg/statuslog"
)

// Severity represents syslog severity levels per RFC 5424.
type Severity int

const (
	SeverityError   Severity = 3
	SeverityWarning Severity = 4
	SeverityNotice  Severity = 5
	SeverityInfo    Severity = 6
)

// String returns the human-readable name for a severity level.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityNotice:
		return "NOTICE"
	case SeverityInfo:
		return "INFO"
	default:
		return "UNKNOWN"
	}
}

// Facility represents RFC 5424 syslog facility codes.
type Facility int

const (
	FacLocal0 Facility = 16
)

// severityMap maps each status kind to its syslog severity.
var severityMap = map[statuslog.Kind]Severity{
	statuslog.KindPending:     SeverityInfo,
	statuslog.KindSuccessful:  SeverityNotice,
	statuslog.KindRejected:    SeverityWarning,
	statuslog.KindFailed:      SeverityWarning,
	statuslog.KindClientError: SeverityWarning,
}

// SeverityFor returns the syslog severity for a status kind.
// Unknown kinds map to SeverityWarning.
func SeverityFor(k statuslog.Kind) Severity {
	if s, ok := severityMap[k]; ok {
		return s
	}
	return SeverityWarning
}

// SDParam is a single key-value parameter within a structured data element.
type SDParam struct {
	Name  string
	Value string
}

// SDElement is a structured data element with an ID and parameters.
type SDElement struct {
	ID     string
	Params []SDParam
}

// Message represents an RFC 5424 syslog message.
type Message struct {
	Facility  Facility
	Severity  Severity
	Timestamp time.Time
	Hostname  string
	AppName   string
	ProcessID string // "" for NILVALUE
	MessageID string // status kind, e.g. "PENDING"
	SD        []SDElement
	Text      string
}

// timestampFormat is the Go format string for RFC 5424 timestamps with fixed 3-digit milliseconds.
const timestampFormat = "2006-01-02T15:04:05.000Z"

// sdID is the structured data element ID used for status records.
const sdID = "keyissuer"

// MessageFor converts a status record to a syslog message.
func MessageFor(rec statuslog.Record, facility Facility, hostname, appName string) Message {
	params := []SDParam{
		{Name: "credential", Value: rec.Credential},
	}
	if rec.IP != "" {
		params = append(params, SDParam{Name: "ip", Value: rec.IP})
	}
	if rec.RequestID != "" {
		params = append(params, SDParam{Name: "request_id", Value: rec.RequestID})
	}

	return Message{
		Facility:  facility,
		Severity:  SeverityFor(rec.Kind),
		Timestamp: rec.Timestamp,
		Hostname:  hostname,
		AppName:   appName,
		MessageID: string(rec.Kind),
		SD:        []SDElement{{ID: sdID, Params: params}},
		Text:      rec.Message,
	}
}

// FormatMessage serializes a Message to RFC 5424 wire format.
// Does not append a newline.
func FormatMessage(m Message) []byte {
	var b strings.Builder
	b.Grow(256)

	fmt.Fprintf(&b, "<%d>1", int(m.Facility)*8+int(m.Severity))

	b.WriteByte(' ')
	if m.Timestamp.IsZero() {
		b.WriteByte('-')
	} else {
		b.WriteString(m.Timestamp.UTC().Format(timestampFormat))
	}

	writeField(&b, m.Hostname, 255)
	writeField(&b, m.AppName, 48)
	writeField(&b, m.ProcessID, 128)
	writeField(&b, m.MessageID, 32)

	b.WriteByte(' ')
	if len(m.SD) == 0 {
		b.WriteByte('-')
	} else {
		for _, elem := range m.SD {
			b.WriteByte('[')
			b.WriteString(elem.ID)
			for _, p := range elem.Params {
				b.WriteByte(' ')
				b.WriteString(p.Name)
				b.WriteString(`="`)
				escapeSDParamValue(&b, p.Value)
				b.WriteByte('"')
			}
			b.WriteByte(']')
		}
	}

	if m.Text != "" {
		b.WriteByte(' ')
		b.WriteString(m.Text)
	}

	return []byte(b.String())
}

// writeField writes a space followed by the field value, or "-" if empty.
// Values with non-printable or space characters are also replaced by "-".
func writeField(b *strings.Builder, val string, maxLen int) {
	b.WriteByte(' ')
	if val == "" || !isPrintUSASCII(val) {
		b.WriteByte('-')
		return
	}
	if len(val) > maxLen {
		val = val[:maxLen]
	}
	b.WriteString(val)
}

// escapeSDParamValue writes val to b, escaping ", \, and ] per RFC 5424 Section 6.3.3.
func escapeSDParamValue(b *strings.Builder, val string) {
	for i := 0; i < len(val); i++ {
		switch val[i] {
		case '"', '\\', ']':
			b.WriteByte('\\')
		}
		b.WriteByte(val[i])
	}
}

// isPrintUSASCII checks that all bytes are in the range 33-126 (visible ASCII).
func isPrintUSASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 33 || s[i] > 126 {
			return false
		}
	}
	return true
}
