package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"snapnote/src/singleinstance"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 50 || opts.command != "capture" || opts.deadline != 5*time.Second {
		t.Fatalf("defaults = %+v", opts)
	}
}

func TestNewRootCmdCustomFlags(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--n", "3", "--command", "pin", "--deadline", "7s"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 3 || opts.command != "pin" || opts.deadline != 7*time.Second {
		t.Fatalf("opts = %+v", opts)
	}
}

type countingClient struct {
	calls atomic.Int32
}

func (c *countingClient) TryDelegate(ctx context.Context, cmd singleinstance.Command) (bool, error) {
	switch c.calls.Add(1) % 3 {
	case 0:
		return true, errors.New("resident busy")
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

func TestStressTallies(t *testing.T) {
	s := stress(9, time.Second, &countingClient{}, singleinstance.CommandCapture)
	if s.ok != 3 || s.busy != 3 || s.notDelegated != 3 || s.errs != 0 {
		t.Fatalf("stats = %+v", s)
	}
	var buf bytes.Buffer
	report(&buf, 9, s)
	if got := buf.String(); got != "launched=9 ok=3 busy=3 none=3 err=0\n" {
		t.Fatalf("report = %q", got)
	}
}
