package audit

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeyondidentity/keyissuer/pkg/statuslog"
)

// testSocketPath returns a short, unique Unix socket path for testing.
// Unix socket paths have a 108-character limit.
func testSocketPath(suffix string) string {
	return fmt.Sprintf("/tmp/kisyslog_%d_%s.sock", os.Getpid(), suffix)
}

func TestSyslogWriter_MessageDelivery(t *testing.T) {
	socketPath := testSocketPath("delivery")
	os.Remove(socketPath)
	t.Cleanup(func() { os.Remove(socketPath) })

	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: socketPath, Net: "unixgram"})
	require.NoError(t, err)
	defer conn.Close()

	writer, err := NewSyslogWriter(SyslogConfig{
		SocketPath: socketPath,
		Hostname:   "test.local",
	})
	require.NoError(t, err)
	defer writer.Close()

	rec := statuslog.Record{
		Timestamp:  time.Date(2026, 2, 4, 15, 30, 0, 0, time.UTC),
		Kind:       statuslog.KindFailed,
		IP:         "10.0.0.9",
		Credential: "ks-abcdefghABCDEFGH",
		Message:    "confirmation timeout after 5s",
	}
	require.NoError(t, writer.Write(context.Background(), rec))

	buf := make([]byte, 4096)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := conn.Read(buf)
	require.NoError(t, err)

	msg := string(buf[:n])
	t.Logf("Received: %s", msg)
	assert.True(t, strings.HasPrefix(msg, "<132>1 2026-02-04T15:30:00.000Z test.local keyissuer - FAILED "))
	assert.Contains(t, msg, `ip="10.0.0.9"`)
	assert.True(t, strings.HasSuffix(msg, "confirmation timeout after 5s"))
}

func TestSyslogWriter_ConnectFailure(t *testing.T) {
	_, err := NewSyslogWriter(SyslogConfig{SocketPath: testSocketPath("missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syslog connect")
}

func TestSyslogWriter_NilReceiver(t *testing.T) {
	var w *SyslogWriter
	assert.NoError(t, w.Write(context.Background(), statuslog.Record{}))
	assert.NoError(t, w.Close())
}
