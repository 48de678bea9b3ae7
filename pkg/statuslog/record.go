package statuslog

import (
	"errors"
	"fmt"
	"time"
)

// NoCredential is recorded when the credential is not known yet.
const NoCredential = "none"

// ErrUnknownKind is returned when parsing a kind outside the closed set.
var ErrUnknownKind = errors.New("statuslog: unknown status kind")

// Kind classifies a status transition.
type Kind string

const (
	// KindPending marks a credential issued and awaiting confirmation.
	KindPending Kind = "PENDING"
	// KindSuccessful marks a confirmed receipt, or a stored key reported valid.
	KindSuccessful Kind = "SUCCESSFUL"
	// KindRejected marks a stored key the client reports as invalid.
	KindRejected Kind = "REJECTED"
	// KindFailed marks a timeout, a malformed key, a failed issuance request
	// or an internal issuance error.
	KindFailed Kind = "FAILED"
	// KindClientError marks a client that could not complete the request.
	KindClientError Kind = "CLIENT_ERROR"
)

// AllKinds returns every defined kind.
func AllKinds() []Kind {
	return []Kind{KindPending, KindSuccessful, KindRejected, KindFailed, KindClientError}
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Record is one immutable status transition.
type Record struct {
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Kind       Kind      `json:"status" yaml:"status"`
	IP         string    `json:"ip" yaml:"ip"`
	Credential string    `json:"credential" yaml:"credential"`
	Message    string    `json:"message" yaml:"message"`
	RequestID  string    `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}
