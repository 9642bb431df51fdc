// Package process supervises the resident's long-running services: the
// event loop, the delegate server and the hotkey and tray watchers.
package process

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

var (
	ErrAlreadyRegistered = errors.New("process already registered")
	ErrNotFound          = errors.New("process not found")
	ErrAlreadyRunning    = errors.New("process already running")
)

// MaxRestarts bounds RestartCrashed per process.
const MaxRestarts = 5

// Process is a service that runs until ctx is cancelled or it fails.
type Process interface {
	Name() string
	Run(ctx context.Context) error
}

// Func adapts a function to Process.
type Func struct {
	ProcessName string
	Fn          func(ctx context.Context) error
}

func (f Func) Name() string { return f.ProcessName }

func (f Func) Run(ctx context.Context) error { return f.Fn(ctx) }

// ProcessState represents the current state of a process
type ProcessState int

const (
	StateStopped ProcessState = iota
	StateRunning
	StateStopping
	StateCrashed
)

func (s ProcessState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// ProcessInfo holds information about a managed process
type ProcessInfo struct {
	Process    Process
	State      ProcessState
	StartTime  time.Time
	CrashCount int
	LastError  error

	cancel context.CancelFunc
	done   chan struct{}
}

// Manager manages the lifecycle of the resident's processes
type Manager struct {
	mu        sync.Mutex
	processes map[string]*ProcessInfo
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewManager creates a manager whose processes stop when parent is done.
func NewManager(parent context.Context) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		processes: make(map[string]*ProcessInfo),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Register adds a process to the manager
func (m *Manager) Register(p Process) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := p.Name()
	if _, exists := m.processes[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	m.processes[name] = &ProcessInfo{Process: p, State: StateStopped}
	log.Printf("Process %s registered", name)
	return nil
}

// Start runs a registered process in its own goroutine.
func (m *Manager) Start(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, exists := m.processes[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if info.State == StateRunning || info.State == StateStopping {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	done := make(chan struct{})
	info.State = StateRunning
	info.StartTime = time.Now()
	info.cancel = cancel
	info.done = done

	go m.run(ctx, info, done)
	log.Printf("Process %s started", name)
	return nil
}

func (m *Manager) run(ctx context.Context, info *ProcessInfo, done chan struct{}) {
	name := info.Process.Name()
	var err error
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		m.finished(ctx, info, err)
	}()
	err = info.Process.Run(ctx)
	if err != nil {
		log.Printf("Process %s returned: %v", name, err)
	}
}

func (m *Manager) finished(ctx context.Context, info *ProcessInfo, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := info.Process.Name()
	if ctx.Err() != nil || err == nil || errors.Is(err, context.Canceled) {
		info.State = StateStopped
		log.Printf("Process %s stopped", name)
		return
	}
	info.State = StateCrashed
	info.LastError = err
	info.CrashCount++
	log.Printf("Process %s crashed: %v (crash count: %d)", name, err, info.CrashCount)
}

// StartAll starts every registered process in name order.
func (m *Manager) StartAll() error {
	for _, name := range m.names() {
		if err := m.Start(name); err != nil {
			return fmt.Errorf("failed to start process %s: %w", name, err)
		}
	}
	return nil
}

// Stop cancels a process and waits for it to return.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	info, exists := m.processes[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if info.State != StateRunning {
		m.mu.Unlock()
		return nil
	}
	info.State = StateStopping
	cancel, done := info.cancel, info.done
	m.mu.Unlock()

	log.Printf("Stopping process %s", name)
	cancel()
	<-done
	return nil
}

// StopAll stops every process and releases the manager context.
func (m *Manager) StopAll() {
	log.Printf("Stopping all processes...")
	for _, name := range m.names() {
		_ = m.Stop(name)
	}
	m.cancel()
	log.Printf("All processes stopped")
}

// Wait blocks until name is no longer running or ctx is done.
func (m *Manager) Wait(ctx context.Context, name string) error {
	m.mu.Lock()
	info, exists := m.processes[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	done := info.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStatus returns the status of all processes
func (m *Manager) GetStatus() map[string]ProcessState {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := make(map[string]ProcessState, len(m.processes))
	for name, info := range m.processes {
		status[name] = info.State
	}
	return status
}

// Info returns a snapshot of one process.
func (m *Manager) Info(name string) (ProcessInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.processes[name]
	if !ok {
		return ProcessInfo{}, false
	}
	return *info, true
}

// RestartCrashed restarts crashed processes that have not exhausted
// MaxRestarts.
func (m *Manager) RestartCrashed() int {
	var crashed []string
	m.mu.Lock()
	for name, info := range m.processes {
		if info.State == StateCrashed && info.CrashCount < MaxRestarts {
			crashed = append(crashed, name)
		}
	}
	m.mu.Unlock()
	sort.Strings(crashed)

	restarted := 0
	for _, name := range crashed {
		log.Printf("Attempting to restart crashed process %s", name)
		if err := m.Start(name); err != nil {
			log.Printf("Failed to restart process %s: %v", name, err)
			continue
		}
		restarted++
	}
	return restarted
}

// Supervise calls RestartCrashed every interval until ctx is done.
func (m *Manager) Supervise(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.RestartCrashed()
		}
	}
}

func (m *Manager) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.processes))
	for name := range m.processes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
