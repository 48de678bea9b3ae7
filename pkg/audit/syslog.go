package audit

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/gobeyondidentity/keyissuer/pkg/statuslog"
)

const (
	reconnectBackoffInit = 100 * time.Millisecond
	reconnectBackoffMax  = 30 * time.Second
)

// SyslogWriter writes status records to the local syslog daemon. It
// implements statuslog.Sink and is meant to be attached as a mirror.
//
// On write failure the writer attempts to reconnect with exponential backoff
// (100ms initial, 30s cap) so a syslog restart does not cause a tight loop.
type SyslogWriter struct {
	conn       net.Conn
	hostname   string
	appName    string
	facility   Facility
	socketPath string

	mu              sync.Mutex
	backoff         time.Duration
	lastReconnectAt time.Time
}

// SyslogConfig holds configuration for the syslog writer.
type SyslogConfig struct {
	SocketPath string   // Default: "/dev/log"
	Hostname   string   // Default: os.Hostname()
	AppName    string   // Default: "keyissuer"
	Facility   Facility // Default: FacLocal0
}

// NewSyslogWriter connects to the syslog socket. Callers should degrade to
// running without the mirror when this fails.
func NewSyslogWriter(cfg SyslogConfig) (*SyslogWriter, error) {
	if cfg.SocketPath == "" {
		cfg.SocketPath = "/dev/log"
	}
	if cfg.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			cfg.Hostname = "unknown"
		} else {
			cfg.Hostname = h
		}
	}
	if cfg.AppName == "" {
		cfg.AppName = "keyissuer"
	}
	if cfg.Facility == 0 {
		cfg.Facility = FacLocal0
	}

	conn, err := dialSyslog(cfg.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("syslog connect: %w", err)
	}

	return &SyslogWriter{
		conn:       conn,
		hostname:   cfg.Hostname,
		appName:    cfg.AppName,
		facility:   cfg.Facility,
		socketPath: cfg.SocketPath,
	}, nil
}

// Write formats rec as RFC 5424 and sends it.
// Safe to call on a nil receiver (returns nil).
func (w *SyslogWriter) Write(_ context.Context, rec statuslog.Record) error {
	if w == nil {
		return nil
	}
	msg := MessageFor(rec, w.facility, w.hostname, w.appName)
	return w.writeOrReconnect(FormatMessage(msg))
}

// writeOrReconnect writes data to the syslog socket. On failure it attempts
// one reconnect (subject to backoff) and retries the write.
func (w *SyslogWriter) writeOrReconnect(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.conn.Write(data)
	if err == nil {
		w.backoff = 0
		return nil
	}

	if reconnErr := w.reconnectLocked(); reconnErr != nil {
		return fmt.Errorf("syslog write failed (%v), reconnect failed: %w", err, reconnErr)
	}

	_, err = w.conn.Write(data)
	if err == nil {
		w.backoff = 0
	}
	return err
}

// reconnectLocked closes the dead connection and dials a new one.
// Must be called with w.mu held.
func (w *SyslogWriter) reconnectLocked() error {
	if w.backoff > 0 && time.Since(w.lastReconnectAt) < w.backoff {
		return fmt.Errorf("syslog reconnect backoff: retry in %v", w.backoff-time.Since(w.lastReconnectAt))
	}

	w.conn.Close()

	conn, err := dialSyslog(w.socketPath)
	if err != nil {
		w.lastReconnectAt = time.Now()
		if w.backoff == 0 {
			w.backoff = reconnectBackoffInit
		} else {
			w.backoff *= 2
			if w.backoff > reconnectBackoffMax {
				w.backoff = reconnectBackoffMax
			}
		}
		return fmt.Errorf("syslog reconnect: %w", err)
	}

	w.conn = conn
	w.backoff = 0
	w.lastReconnectAt = time.Time{}
	return nil
}

// Close closes the syslog socket connection.
// Safe to call on a nil receiver (returns nil).
func (w *SyslogWriter) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Close()
}

// dialSyslog tries unixgram first and falls back to a unix stream socket.
func dialSyslog(socketPath string) (net.Conn, error) {
	conn, err := net.Dial("unixgram", socketPath)
	if err == nil {
		return conn, nil
	}
	return net.Dial("unix", socketPath)
}
