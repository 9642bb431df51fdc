package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"snapnote/src/singleinstance"
)

type stressOptions struct {
	n        int
	command  string
	deadline time.Duration
}

type stats struct {
	ok, busy, notDelegated, errs int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-delegate",
		Short:         "Stress test trigger delegation to a running resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := singleinstance.ParseCommand(opts.command)
			if err != nil {
				return err
			}
			s := stress(opts.n, opts.deadline, singleinstance.NewClient(), c)
			report(cmd.OutOrStdout(), opts.n, s)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of concurrent clients")
	cmd.Flags().StringVar(&opts.command, "command", "capture", "capture|pin: trigger to delegate")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

type delegator interface {
	TryDelegate(ctx context.Context, cmd singleinstance.Command) (bool, error)
}

func stress(n int, deadline time.Duration, client delegator, c singleinstance.Command) stats {
	var wg sync.WaitGroup
	var s stats
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deadline)
			defer cancel()
			delegated, err := client.TryDelegate(ctx, c)
			switch {
			case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
				atomic.AddInt32(&s.busy, 1)
			case err != nil:
				atomic.AddInt32(&s.errs, 1)
			case delegated:
				atomic.AddInt32(&s.ok, 1)
			default:
				atomic.AddInt32(&s.notDelegated, 1)
			}
		}()
	}
	wg.Wait()
	return s
}

func report(w io.Writer, n int, s stats) {
	fmt.Fprintf(w, "launched=%d ok=%d busy=%d none=%d err=%d\n", n, s.ok, s.busy, s.notDelegated, s.errs)
}
