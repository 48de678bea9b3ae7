// Package statuslog is the append-only audit trail of credential status
// transitions.
//
// A Logger owns one primary Sink and any number of mirrors. Every Record is
// written to the primary sink under a mutex, so lines from concurrent callers
// never interleave and each caller's appends keep their order. Mirror
// failures are logged and swallowed; only the primary sink decides whether
// Record succeeds.
package statuslog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sink persists status records.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// Logger serializes records to its sinks.
type Logger struct {
	mu      sync.Mutex
	primary Sink
	mirrors []Sink
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Logger.
type Option func(*Logger)

// WithMirror adds a secondary sink. Write errors from mirrors are logged only.
func WithMirror(s Sink) Option {
	return func(l *Logger) {
		if s != nil {
			l.mirrors = append(l.mirrors, s)
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// WithLogger sets the logger used to report mirror failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Logger writing to primary.
func New(primary Sink, opts ...Option) *Logger {
	l := &Logger{
		primary: primary,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type requestIDKey struct{}

// WithRequestID returns a context carrying id; Record copies it onto records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Record appends one status record. An empty credential is stored as
// NoCredential. Cancellation of ctx does not abort the write: once a
// transition happened, every sink must see it.
func (l *Logger) Record(ctx context.Context, kind Kind, ip, credential, message string) error {
	ctx = context.WithoutCancel(ctx)
	if credential == "" {
		credential = NoCredential
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Timestamp:  l.now().UTC(),
		Kind:       kind,
		IP:         ip,
		Credential: credential,
		Message:    message,
		RequestID:  RequestID(ctx),
	}

	if err := l.primary.Write(ctx, rec); err != nil {
		return fmt.Errorf("append status record: %w", err)
	}

	for _, m := range l.mirrors {
		if err := m.Write(ctx, rec); err != nil {
			l.logger.Error("status mirror write failed",
				"status", string(rec.Kind),
				"credential", rec.Credential,
				"error", err,
			)
		}
	}
	return nil
}
