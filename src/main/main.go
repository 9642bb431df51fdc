package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"snapnote/src/config"
	"snapnote/src/desktop"
	"snapnote/src/eventloop"
	"snapnote/src/hotkey"
	"snapnote/src/logutil"
	"snapnote/src/messages"
	"snapnote/src/notification"
	"snapnote/src/pin"
	"snapnote/src/process"
	"snapnote/src/router"
	"snapnote/src/runtimeinit"
	"snapnote/src/screenshot"
	"snapnote/src/singleinstance"
	"snapnote/src/tray"
)

const (
	delegateTimeout   = 2 * time.Second
	superviseInterval = 5 * time.Second
)

type mainOptions struct {
	apiKeyPath   string
	display      int
	capture      bool
	pinClipboard bool
}

// delegator is the part of singleinstance.Client main needs.
type delegator interface {
	TryDelegate(ctx context.Context, cmd singleinstance.Command) (bool, error)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := normalizeLegacyArgs(os.Args)
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snapnote",
		Short:         "Capture screen regions to the clipboard, pins or text",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().IntVar(&opts.display, "display", -1, "Display index to capture (default from CAPTURE_DISPLAY)")
	cmd.Flags().BoolVar(&opts.capture, "capture", false, "Open a capture surface, delegating to a running instance if any")
	cmd.Flags().BoolVar(&opts.pinClipboard, "pin-clipboard", false, "Pin the clipboard image, delegating to a running instance if any")
	cmd.MarkFlagsMutuallyExclusive("capture", "pin-clipboard")

	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to their GNU form.
func normalizeLegacyArgs(args []string) []string {
	long := []string{"api-key-path", "display", "capture", "pin-clipboard"}
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}

// triggerFor returns the delegated command and local trigger for opts.
func triggerFor(opts mainOptions) (singleinstance.Command, messages.Message) {
	switch {
	case opts.capture:
		return singleinstance.CommandCapture, messages.TriggerCapture{Source: "cli"}
	case opts.pinClipboard:
		return singleinstance.CommandPin, messages.TriggerPinClipboard{Source: "cli"}
	}
	return "", nil
}

// handleDelegation hands cmd to a running resident. It reports false when
// the caller should start a resident itself.
func handleDelegation(client delegator, cmd singleinstance.Command) bool {
	ctx, cancel := context.WithTimeout(context.Background(), delegateTimeout)
	defer cancel()
	delegated, err := client.TryDelegate(ctx, cmd)
	if err != nil {
		log.Printf("Delegation error: %v; starting locally", err)
		return false
	}
	if delegated {
		log.Printf("Delegated %s to resident", cmd)
		return true
	}
	log.Printf("No resident detected, starting locally")
	return false
}

func runWithOptions(opts mainOptions) error {
	// Load .env early so SNAPNOTE_PORT_* apply before delegation.
	_, _ = config.Load()

	command, initial := triggerFor(opts)
	if command != "" && handleDelegation(singleinstance.NewClient(), command) {
		return nil
	}

	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := singleinstance.NewServer()
	if err := server.Start(ctx); err != nil {
		start, _ := singleinstance.PortRange()
		return fmt.Errorf("an instance is already running on port %d", start)
	}
	defer server.Close()

	loadOptions := config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath}
	if opts.display >= 0 {
		loadOptions.DisplayOverride = &opts.display
	}
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:       loadOptions,
		SetupLogging:      logutil.Setup,
		Ping:              true,
		ShowBlockingError: true,
		NeedClipboard:     true,
	})
	if err != nil {
		return err
	}
	cfg := rt.Config
	logMonitorConfiguration()
	log.Printf("SnapNote initialized: display=%d hotkey=%s pin_hotkey=%s deadline=%ds",
		cfg.CaptureDisplay, cfg.Hotkey, cfg.PinHotkey, cfg.OCRDeadlineSec)

	a := app.NewWithID("io.snapnote.resident")
	host := desktop.New(a, cfg.CaptureDisplay)
	bus := router.NewRouter()
	defer bus.Shutdown()

	loop := eventloop.New(eventloop.Deps{
		Host:      host,
		Source:    screenshot.NewDisplaySource(),
		Clipboard: rt.Clipboard,
		Pipeline:  rt.Pipeline(),
		Bus:       bus,
	}, eventloop.Options{
		Display:     cfg.CaptureDisplay,
		ScaleFactor: cfg.ScaleFactor,
		Deadline:    time.Duration(cfg.OCRDeadlineSec) * time.Second,
		Pin:         pin.Options{MaxFraction: cfg.PinMaxFraction, MinSize: cfg.PinMinSize},
	})
	host.Attach(loop)

	procs := process.NewManager(ctx)
	for _, p := range residentProcesses(cfg, loop.Post, server, bus) {
		if err := procs.Register(p); err != nil {
			return err
		}
	}
	if err := procs.StartAll(); err != nil {
		return err
	}
	go procs.Supervise(ctx, superviseInterval)

	if runtime.GOOS != "darwin" {
		go tray.Run(tray.Actions{
			Capture:      func() { loop.Post(messages.TriggerCapture{Source: messages.ProcessTray}) },
			PinClipboard: func() { loop.Post(messages.TriggerPinClipboard{Source: messages.ProcessTray}) },
			Quit:         func() { loop.Post(messages.Quit{}) },
		})
		defer tray.Quit()
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			loop.Post(messages.Quit{})
		case <-ctx.Done():
		}
	}()

	go func() {
		if err := loop.Run(ctx); err != nil {
			log.Printf("event loop stopped: %v", err)
		}
	}()
	if initial != nil {
		loop.Post(initial)
	}

	a.Run()
	cancel()
	procs.StopAll()
	log.Printf("SnapNote exited")
	return nil
}

// residentProcesses lists the services supervised for the lifetime of the
// resident.
func residentProcesses(cfg *config.Config, post func(messages.Message) bool, server singleinstance.Server, bus *router.Router) []process.Process {
	return []process.Process{
		process.Func{ProcessName: messages.ProcessDelegate, Fn: func(ctx context.Context) error {
			singleinstance.Serve(ctx, server, func(c singleinstance.Command) error {
				m := delegatedTrigger(c)
				if m == nil || !post(m) {
					return fmt.Errorf("resident busy")
				}
				return nil
			})
			return ctx.Err()
		}},
		process.Func{ProcessName: messages.ProcessHotkey, Fn: func(ctx context.Context) error {
			err := hotkey.Listen([]hotkey.Binding{
				{Name: "capture", Combo: cfg.Hotkey, Callback: func() {
					post(messages.TriggerCapture{Source: messages.ProcessHotkey})
				}},
				{Name: "pin clipboard", Combo: cfg.PinHotkey, Callback: func() {
					post(messages.TriggerPinClipboard{Source: messages.ProcessHotkey})
				}},
			})
			if err != nil {
				log.Printf("Hotkeys disabled: %v", err)
			}
			<-ctx.Done()
			return ctx.Err()
		}},
		process.Func{ProcessName: messages.ProcessTray, Fn: func(ctx context.Context) error {
			ch, err := bus.Subscribe(messages.ProcessTray, 16)
			if err != nil {
				return err
			}
			defer bus.Unsubscribe(messages.ProcessTray)
			tray.Watch(ctx, ch, tray.SetTooltip)
			return ctx.Err()
		}},
		process.Func{ProcessName: messages.ProcessLog, Fn: func(ctx context.Context) error {
			ch, err := bus.Subscribe(messages.ProcessLog, 32)
			if err != nil {
				return err
			}
			defer bus.Unsubscribe(messages.ProcessLog)
			notification.Follow(ctx, ch, notification.LogLine)
			return ctx.Err()
		}},
	}
}

func delegatedTrigger(c singleinstance.Command) messages.Message {
	switch c {
	case singleinstance.CommandCapture:
		return messages.TriggerCapture{Source: messages.ProcessDelegate}
	case singleinstance.CommandPin:
		return messages.TriggerPinClipboard{Source: messages.ProcessDelegate}
	}
	return nil
}
