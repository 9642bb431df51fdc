package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"time"
)

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) TryDelegate(ctx context.Context, cmd Command) (bool, error) {
	deadline := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			deadline = d
		}
	}
	port, ok := DetectResidentPort(ctx)
	if !ok {
		return false, nil
	}
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, deadline)
	if err != nil {
		return false, nil
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(deadline))

	log.Printf("singleinstance: delegating %s to %s", cmd, addr)
	if _, err := io.WriteString(conn, string(cmd)+"\n"); err != nil {
		return true, err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return true, err
	}
	switch status {
	case successResponse:
		return true, nil
	case errorResponse:
		msg, _ := io.ReadAll(br)
		return true, errors.New(strings.TrimSpace(string(msg)))
	}
	return true, errors.New("singleinstance: unexpected response " + strconv.Quote(status))
}
