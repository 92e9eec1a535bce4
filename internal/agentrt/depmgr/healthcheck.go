package depmgr

import (
	"context"
	"net"
	"net/http"
	"os/exec"
	"time"

	"github.com/gorilla/websocket"
)

// probeHealthy runs a single health-check attempt per hc.Kind.
func probeHealthy(ctx context.Context, hc HealthCheck) bool {
	timeout := hc.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	switch hc.Kind {
	case HealthTCPPort:
		conn, err := net.DialTimeout("tcp", hc.Target, timeout)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	case HealthHTTP:
		client := &http.Client{Timeout: timeout}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.Target, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode >= 200 && resp.StatusCode < 300
	case HealthWebSocket:
		dialer := websocket.Dialer{HandshakeTimeout: timeout}
		conn, resp, err := dialer.DialContext(ctx, hc.Target, nil)
		if resp != nil {
			resp.Body.Close()
		}
		if err != nil {
			return false
		}
		conn.Close()
		return true
	case HealthCommand:
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		cmd := exec.CommandContext(cctx, "sh", "-c", hc.Target)
		return cmd.Run() == nil
	default:
		return true
	}
}
