package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gobeyondidentity/keyissuer/pkg/credential"
	"github.com/gobeyondidentity/keyissuer/pkg/pending"
	"github.com/gobeyondidentity/keyissuer/pkg/statuslog"
)

// maxMessageLength bounds client-supplied text copied into status records.
const maxMessageLength = 512

// ConfirmStatus is the outcome a client reports for a credential.
type ConfirmStatus string

const (
	StatusSuccess       ConfirmStatus = "success"
	StatusLoadedValid   ConfirmStatus = "loaded_valid"
	StatusLoadedInvalid ConfirmStatus = "loaded_invalid"
	StatusInvalidFormat ConfirmStatus = "invalid_format"
	StatusRequestFailed ConfirmStatus = "request_failed"
)

// ErrUnknownStatus is returned by Confirm for a tag outside the known set.
// The report is still recorded as CLIENT_ERROR.
var ErrUnknownStatus = errors.New("unrecognized confirmation status")

type statusOutcome struct {
	kind    statuslog.Kind
	message string
}

var statusOutcomes = map[ConfirmStatus]statusOutcome{
	StatusSuccess:       {statuslog.KindSuccessful, "client confirmed receipt"},
	StatusLoadedValid:   {statuslog.KindSuccessful, "client reports stored credential valid"},
	StatusLoadedInvalid: {statuslog.KindRejected, "client reports stored credential invalid"},
	StatusInvalidFormat: {statuslog.KindFailed, "client reports malformed credential"},
	StatusRequestFailed: {statuslog.KindFailed, "client reports issuance request failed"},
}

// Known reports whether s is a recognized status tag.
func (s ConfirmStatus) Known() bool {
	_, ok := statusOutcomes[s]
	return ok
}

// RequiresCredential reports whether a report with this tag must name the
// credential it is about.
func (s ConfirmStatus) RequiresCredential() bool {
	switch s {
	case StatusSuccess, StatusLoadedValid, StatusLoadedInvalid:
		return true
	default:
		return false
	}
}

// Observer is notified of lifecycle events, typically to update metrics.
type Observer interface {
	Issued()
	Recorded(statuslog.Kind)
	TimedOut()
}

type nopObserver struct{}

func (nopObserver) Issued()                 {}
func (nopObserver) Recorded(statuslog.Kind) {}
func (nopObserver) TimedOut()               {}

// IssuerConfig holds the Issuer's collaborators and tuning.
type IssuerConfig struct {
	// Timeout is the confirmation window. Defaults to pending.DefaultTimeout.
	Timeout time.Duration
	// Scheduler drives confirmation timers. Defaults to time.AfterFunc.
	Scheduler pending.Scheduler
	// Observer receives lifecycle events. Optional.
	Observer Observer
	// Logger receives operational messages. Defaults to slog.Default().
	Logger *slog.Logger
}

// Issuer orchestrates credential issuance and confirmation. It owns the
// pending registry; every status transition goes through its status log.
type Issuer struct {
	gen      *credential.Generator
	registry *pending.Registry
	status   *statuslog.Logger
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
}

// NewIssuer creates an Issuer and its pending registry.
func NewIssuer(gen *credential.Generator, status *statuslog.Logger, cfg IssuerConfig) *Issuer {
	i := &Issuer{
		gen:      gen,
		status:   status,
		timeout:  cfg.Timeout,
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}
	if i.timeout <= 0 {
		i.timeout = pending.DefaultTimeout
	}
	if i.observer == nil {
		i.observer = nopObserver{}
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}

	opts := []pending.Option{
		pending.WithExpiryHandler(i.handleExpired),
		pending.WithLogger(i.logger),
	}
	if cfg.Scheduler != nil {
		opts = append(opts, pending.WithScheduler(cfg.Scheduler))
	}
	i.registry = pending.NewRegistry(opts...)
	return i
}

// Registry returns the pending registry.
func (i *Issuer) Registry() *pending.Registry {
	return i.registry
}

// Timeout returns the confirmation window.
func (i *Issuer) Timeout() time.Duration {
	return i.timeout
}

// Issue generates a credential for the caller at ip, records it as PENDING
// and starts its confirmation timer. On any failure a FAILED record is
// written and no entry is left in the registry.
//
// PENDING is recorded before the timer starts so the timeout record can
// never precede it in the log.
func (i *Issuer) Issue(ctx context.Context, ip string) (string, error) {
	cred, err := i.gen.Generate()
	if err != nil {
		i.recordFailure(ctx, ip, "", err)
		return "", fmt.Errorf("generate credential: %w", err)
	}

	if err := i.record(ctx, statuslog.KindPending, ip, cred, "credential issued, awaiting confirmation"); err != nil {
		i.recordFailure(ctx, ip, cred, err)
		return "", err
	}

	// Register leaves the registry untouched when it fails.
	if err := i.registry.Register(cred, ip, i.timeout); err != nil {
		i.recordFailure(ctx, ip, cred, err)
		return "", fmt.Errorf("register credential: %w", err)
	}

	i.observer.Issued()
	return cred, nil
}

// ConfirmResult describes the effect of a confirmation report.
type ConfirmResult struct {
	// Resolved is true when the report ended the credential's pending state.
	Resolved bool
	// Recorded is true when a status record was written.
	Recorded bool
}

// Confirm applies a client's report about cred. A success report resolves
// the credential; when the credential is no longer pending the report is a
// no-op so each credential keeps a single terminal record. Other known tags
// are always recorded. Unknown tags are recorded as CLIENT_ERROR and
// ErrUnknownStatus is returned.
func (i *Issuer) Confirm(ctx context.Context, ip, cred string, status ConfirmStatus, detail string) (ConfirmResult, error) {
	outcome, ok := statusOutcomes[status]
	if !ok {
		msg := withDetail(fmt.Sprintf("unrecognized confirmation status %q", truncate(string(status))), detail)
		if err := i.record(ctx, statuslog.KindClientError, ip, cred, msg); err != nil {
			return ConfirmResult{}, err
		}
		return ConfirmResult{Recorded: true}, fmt.Errorf("%w: %q", ErrUnknownStatus, truncate(string(status)))
	}

	var result ConfirmResult
	if status == StatusSuccess {
		if !i.registry.Resolve(cred) {
			if i.gen.Valid(cred) {
				i.logger.Info("confirmation for credential no longer pending",
					"credential", cred, "ip", ip)
			} else {
				i.logger.Warn("confirmation for credential this issuer never produced",
					"credential", truncate(cred), "ip", ip)
			}
			return result, nil
		}
		result.Resolved = true
	}

	if err := i.record(ctx, outcome.kind, ip, cred, withDetail(outcome.message, detail)); err != nil {
		// The resolve cannot be undone; the timer is gone and no terminal
		// line exists for this credential.
		if result.Resolved {
			i.logger.Error("credential resolved without a terminal record",
				"credential", cred, "ip", ip, "error", err)
		}
		return result, err
	}
	result.Recorded = true
	return result, nil
}

// ReportClientError records that the client at ip could not complete an
// issuance request. The credential is unknown at this point.
func (i *Issuer) ReportClientError(ctx context.Context, ip, detail string) error {
	return i.record(ctx, statuslog.KindClientError, ip, statuslog.NoCredential,
		withDetail("client could not complete issuance request", detail))
}

// Shutdown stops all confirmation timers and records every still-pending
// credential as FAILED.
func (i *Issuer) Shutdown(ctx context.Context) {
	for _, e := range i.registry.Close() {
		if err := i.record(ctx, statuslog.KindFailed, e.IP, e.Credential, "service shut down before confirmation"); err != nil {
			i.logger.Error("failed to record shutdown outcome", "credential", e.Credential, "error", err)
		}
	}
}

// handleExpired runs on the timer goroutine after a credential's window
// elapsed without confirmation.
func (i *Issuer) handleExpired(e pending.Expired) {
	i.observer.TimedOut()
	msg := fmt.Sprintf("confirmation timeout after %s", e.Timeout)
	if err := i.record(context.Background(), statuslog.KindFailed, e.IP, e.Credential, msg); err != nil {
		i.logger.Error("failed to record confirmation timeout", "credential", e.Credential, "error", err)
	}
}

func (i *Issuer) record(ctx context.Context, kind statuslog.Kind, ip, cred, message string) error {
	if err := i.status.Record(ctx, kind, ip, cred, message); err != nil {
		return err
	}
	i.observer.Recorded(kind)
	return nil
}

func (i *Issuer) recordFailure(ctx context.Context, ip, cred string, cause error) {
	if err := i.record(ctx, statuslog.KindFailed, ip, cred, cause.Error()); err != nil {
		i.logger.Error("failed to record issuance failure", "cause", cause, "error", err)
	}
}

func withDetail(message, detail string) string {
	if detail == "" {
		return message
	}
	return message + ": " + truncate(detail)
}

func truncate(s string) string {
	if len(s) <= maxMessageLength {
		return s
	}
	return s[:maxMessageLength] + "..."
}
