package netutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{
			name:       "single XFF entry",
			xff:        "10.0.0.1",
			remoteAddr: "192.168.1.1:4321",
			want:       "10.0.0.1",
		},
		{
			name:       "multiple XFF entries returns first",
			xff:        "10.0.0.1, 172.16.0.1, 192.168.0.1",
			remoteAddr: "192.168.1.1:4321",
			want:       "10.0.0.1",
		},
		{
			name:       "XFF with spaces trimmed",
			xff:        "  10.0.0.1 , 172.16.0.1",
			remoteAddr: "192.168.1.1:4321",
			want:       "10.0.0.1",
		},
		{
			name:       "blank first XFF entry falls back to peer",
			xff:        " , 172.16.0.1",
			remoteAddr: "192.168.1.1:4321",
			want:       "192.168.1.1",
		},
		{
			name:       "RemoteAddr with port stripped",
			remoteAddr: "192.168.1.1:4321",
			want:       "192.168.1.1",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "192.168.1.1",
			want:       "192.168.1.1",
		},
		{
			name:       "IPv6 RemoteAddr with port stripped",
			remoteAddr: "[::1]:4321",
			want:       "::1",
		},
		{
			name:       "IPv6 RemoteAddr without port",
			remoteAddr: "::1",
			want:       "::1",
		},
		{
			name:       "empty RemoteAddr",
			remoteAddr: "",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{
				RemoteAddr: tt.remoteAddr,
				Header:     make(http.Header),
			}
			if tt.xff != "" {
				r.Header.Set(ForwardedForHeader, tt.xff)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
