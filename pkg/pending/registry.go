// Package pending tracks issued credentials until the client confirms them
// or a confirmation timeout elapses.
//
// Each registered credential owns one deferred timer. Whichever of Resolve
// and the timer callback removes the entry first wins; the other becomes a
// no-op. The expiry handler is invoked only by the winning timer, outside the
// registry lock.
package pending

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout is the confirmation window for a newly issued credential.
const DefaultTimeout = 5 * time.Second

var (
	// ErrClosed is returned by Register after Close.
	ErrClosed = errors.New("pending: registry closed")

	// ErrEmptyCredential is returned when registering an empty credential.
	ErrEmptyCredential = errors.New("pending: credential must be non-empty")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("pending: timeout must be > 0")
)

// Timer is a cancellable deferred action.
type Timer interface {
	// Stop prevents the action from running. It returns false if the action
	// already ran or was already stopped.
	Stop() bool
}

// Scheduler starts deferred actions. The action must run on its own
// goroutine; AfterFunc must not invoke f synchronously.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Expired describes an entry that left the registry without being resolved,
// either because its timer fired or because the registry was closed.
type Expired struct {
	Credential string
	IP         string
	IssuedAt   time.Time
	Timeout    time.Duration
}

// ExpiryHandler receives entries removed by their timer.
type ExpiryHandler func(Expired)

type entry struct {
	ip       string
	issuedAt time.Time
	timeout  time.Duration
	timer    Timer
}

func (e *entry) expired(credential string) Expired {
	return Expired{
		Credential: credential,
		IP:         e.ip,
		IssuedAt:   e.issuedAt,
		Timeout:    e.timeout,
	}
}

// Registry is the set of credentials awaiting confirmation.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*entry
	closed   bool
	inflight sync.WaitGroup

	scheduler Scheduler
	onExpire  ExpiryHandler
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithScheduler replaces the timer source. Defaults to time.AfterFunc.
func WithScheduler(s Scheduler) Option {
	return func(r *Registry) {
		r.scheduler = s
	}
}

// WithExpiryHandler sets the callback run when a credential times out.
func WithExpiryHandler(h ExpiryHandler) Option {
	return func(r *Registry) {
		r.onExpire = h
	}
}

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithLogger sets the logger for operational messages.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:   make(map[string]*entry),
		scheduler: timeScheduler{},
		onExpire:  func(Expired) {},
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register marks credential as pending and starts its confirmation timer.
// If the credential is already pending the previous entry is replaced and its
// timer stopped.
func (r *Registry) Register(credential, ip string, timeout time.Duration) error {
	if credential == "" {
		return ErrEmptyCredential
	}
	if timeout <= 0 {
		return ErrInvalidTimeout
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	e := &entry{
		ip:       ip,
		issuedAt: r.now(),
		timeout:  timeout,
	}
	// The callback blocks on r.mu until this function returns, so e.timer is
	// always set before anything can observe e.
	e.timer = r.scheduler.AfterFunc(timeout, func() { r.expire(credential, e) })

	if prev, ok := r.entries[credential]; ok {
		prev.timer.Stop()
		r.logger.Warn("credential collision, replacing pending entry", "credential", credential)
	}
	r.entries[credential] = e
	return nil
}

// Resolve ends the pending state of credential. It returns true if the
// credential was pending, false if it was unknown, already resolved or
// already timed out.
func (r *Registry) Resolve(credential string) bool {
	return r.take(credential)
}

// Remove discards a pending credential without resolving it. It is used to
// roll back a registration whose issuance failed afterwards.
func (r *Registry) Remove(credential string) bool {
	return r.take(credential)
}

func (r *Registry) take(credential string) bool {
	r.mu.Lock()
	e, ok := r.entries[credential]
	if ok {
		delete(r.entries, credential)
	}
	r.mu.Unlock()

	if ok {
		e.timer.Stop()
	}
	return ok
}

// expire runs on the timer goroutine. The entry is removed only if it is the
// same entry the timer was created for.
func (r *Registry) expire(credential string, e *entry) {
	r.mu.Lock()
	cur, ok := r.entries[credential]
	if !ok || cur != e {
		r.mu.Unlock()
		return
	}
	delete(r.entries, credential)
	r.inflight.Add(1)
	r.mu.Unlock()

	defer r.inflight.Done()
	r.onExpire(e.expired(credential))
}

// Pending reports whether credential is awaiting confirmation.
func (r *Registry) Pending(credential string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[credential]
	return ok
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Len returns the number of pending credentials.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops every timer and rejects further registrations. It waits for
// expiry handlers that already won their race, then returns the entries that
// were still pending so the caller can record their outcome.
// Close is idempotent; later calls return nil.
func (r *Registry) Close() []Expired {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true

	drained := make([]Expired, 0, len(r.entries))
	for credential, e := range r.entries {
		e.timer.Stop()
		drained = append(drained, e.expired(credential))
	}
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	r.inflight.Wait()
	return drained
}
