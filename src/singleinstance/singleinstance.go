// Package singleinstance lets a second invocation hand its trigger to the
// resident process over loopback TCP.
package singleinstance

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Command is a trigger delegated to the resident.
type Command string

const (
	CommandCapture Command = "CAPTURE"
	CommandPin     Command = "PIN"
)

var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand reads one protocol line.
func ParseCommand(line string) (Command, error) {
	c := Command(strings.ToUpper(strings.TrimSpace(line)))
	switch c {
	case CommandCapture, CommandPin:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, strings.TrimSpace(line))
}

// Server owns the TCP endpoint and answers delegated triggers.
type Server interface {
	// Start listens on the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted request, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn is one client connection.
type Conn interface {
	Request() Request
	RespondSuccess(text string) error
	RespondError(msg string) error
	Close() error
}

// Request is a single delegated trigger.
type Request struct {
	Command Command
}

// Client attempts to delegate a trigger to a resident server.
type Client interface {
	// TryDelegate scans the port range for a resident and sends cmd. With no
	// resident it returns delegated=false, err=nil.
	TryDelegate(ctx context.Context, cmd Command) (delegated bool, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTcpClient() }

// Serve answers requests from srv until ctx is done. handle runs for every
// request; its error is reported to the client.
func Serve(ctx context.Context, srv Server, handle func(Command) error) {
	for {
		conn, err := srv.Next(ctx)
		if err != nil {
			return
		}
		if err := handle(conn.Request().Command); err != nil {
			_ = conn.RespondError(err.Error())
		} else {
			_ = conn.RespondSuccess("")
		}
		_ = conn.Close()
	}
}
