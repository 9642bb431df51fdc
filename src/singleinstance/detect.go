package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// maxProbe bounds a single port probe so a full scan stays short.
const maxProbe = 300 * time.Millisecond

// DetectResidentPort walks the port range and returns the first port whose
// listener answers PING with PONG.
func DetectResidentPort(ctx context.Context) (int, bool) {
	probe := maxProbe
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 && left < probe {
			probe = left
		}
	}
	start, end := getPortRange()
	for port := start; port <= end; port++ {
		if ctx.Err() != nil {
			break
		}
		if isResident(ctx, net.JoinHostPort(residentHost, strconv.Itoa(port)), probe) {
			return port, true
		}
	}
	return 0, false
}

func isResident(ctx context.Context, addr string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	if _, err := fmt.Fprint(conn, pingRequest); err != nil {
		return false
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && line == pongResponse
}
