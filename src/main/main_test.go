package main

import (
	"context"
	"errors"
	"testing"

	"snapnote/src/messages"
	"snapnote/src/singleinstance"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"snapnote", "-capture", "-api-key-path", "/tmp/key"},
			out:  []string{"snapnote", "--capture", "--api-key-path", "/tmp/key"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"snapnote", "-display=1", "-pin-clipboard=true"},
			out:  []string{"snapnote", "--display=1", "--pin-clipboard=true"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"snapnote", "--capture", "-x", "-capturex"},
			out:  []string{"snapnote", "--capture", "-x", "-capturex"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--capture", "--api-key-path", "/tmp/key", "--display", "2"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if !opts.capture || opts.pinClipboard {
		t.Fatalf("capture=%v pinClipboard=%v", opts.capture, opts.pinClipboard)
	}
	if opts.apiKeyPath != "/tmp/key" || opts.display != 2 {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	if opts.display != -1 {
		t.Fatalf("default display = %d, want -1", opts.display)
	}
}

func TestTriggerFor(t *testing.T) {
	cmd, msg := triggerFor(mainOptions{capture: true})
	if cmd != singleinstance.CommandCapture || msg.Type() != messages.TypeTriggerCapture {
		t.Fatalf("capture = %q, %v", cmd, msg)
	}
	cmd, msg = triggerFor(mainOptions{pinClipboard: true})
	if cmd != singleinstance.CommandPin || msg.Type() != messages.TypeTriggerPinClipboard {
		t.Fatalf("pin = %q, %v", cmd, msg)
	}
	if cmd, msg = triggerFor(mainOptions{}); cmd != "" || msg != nil {
		t.Fatalf("plain start = %q, %v", cmd, msg)
	}
}

func TestDelegatedTrigger(t *testing.T) {
	if m := delegatedTrigger(singleinstance.CommandPin); m.Type() != messages.TypeTriggerPinClipboard {
		t.Fatalf("PIN -> %v", m)
	}
	if m := delegatedTrigger("BOGUS"); m != nil {
		t.Fatalf("unknown -> %v", m)
	}
}

type fakeClient struct {
	delegated bool
	err       error
	called    singleinstance.Command
}

func (f *fakeClient) TryDelegate(ctx context.Context, cmd singleinstance.Command) (bool, error) {
	f.called = cmd
	return f.delegated, f.err
}

func TestHandleDelegation(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
		want   bool
	}{
		{"delegated", &fakeClient{delegated: true}, true},
		{"no resident", &fakeClient{}, false},
		{"delegation error", &fakeClient{delegated: true, err: errors.New("busy")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handleDelegation(tt.client, singleinstance.CommandCapture); got != tt.want {
				t.Fatalf("handleDelegation = %v, want %v", got, tt.want)
			}
			if tt.client.called != singleinstance.CommandCapture {
				t.Fatalf("client called with %q", tt.client.called)
			}
		})
	}
}
