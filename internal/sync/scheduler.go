// Package sync drives the background auto-sync timer. The scheduler
// owns the timer and the enable/disable transitions; the engine owns
// the busy flags and the minimum-interval throttle, so a tick that
// fires at a bad moment is simply skipped there.
package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// tickTimeout is the maximum time allowed for one incremental sync.
const tickTimeout = 30 * time.Second

// Syncer is the sync entry point the scheduler drives. AutoSyncTick
// runs all guards internally and reports whether a sync actually ran.
type Syncer interface {
	AutoSyncTick(ctx context.Context) bool
	AutoSyncEnabled() bool
}

// TickResultMsg is a tea.Msg sent when an auto-sync tick merged new
// messages, so the UI can re-render its list.
type TickResultMsg struct{}

// Scheduler owns the fixed-period auto-sync timer.
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	logger   *slog.Logger
	resultCh chan TickResultMsg

	mu      gosync.Mutex
	stopCh  chan struct{} // closes the current timer goroutine; nil when disarmed
	stopped bool
}

// New creates a scheduler with the given tick period.
func New(syncer Syncer, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		logger:   logger,
		resultCh: make(chan TickResultMsg, 16),
	}
}

// Start arms the timer if auto-sync is enabled and returns a
// subscription command that delivers TickResultMsg messages to the
// Bubble Tea runtime.
func (s *Scheduler) Start() tea.Cmd {
	if s.syncer.AutoSyncEnabled() {
		s.arm()
	}
	return s.waitForResult()
}

// SetEnabled re-arms the timer with a fresh full period when enabling,
// and cancels the pending timer outright when disabling.
func (s *Scheduler) SetEnabled(enabled bool) {
	if enabled {
		s.arm()
		return
	}
	s.disarm()
}

// Stop cancels the timer permanently.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.disarm()
}

// arm starts a new timer goroutine, replacing any existing one.
func (s *Scheduler) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.stopCh != nil {
		close(s.stopCh)
	}
	stop := make(chan struct{})
	s.stopCh = stop
	go s.loop(stop)
}

// disarm cancels the current timer goroutine, if any.
func (s *Scheduler) disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
}

// loop fires AutoSyncTick on every tick until stopped.
func (s *Scheduler) loop(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
			synced := s.syncer.AutoSyncTick(ctx)
			cancel()

			if synced {
				s.sendResult()
			}
		}
	}
}

// sendResult notifies the UI without blocking the timer goroutine.
func (s *Scheduler) sendResult() {
	select {
	case s.resultCh <- TickResultMsg{}:
	default:
		// Channel full; the UI is already due for a refresh.
	}
}

// waitForResult returns a tea.Cmd that waits for the next tick result.
func (s *Scheduler) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-s.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next tick
// result. Call after processing a TickResultMsg to keep listening.
func (s *Scheduler) WaitForNextResult() tea.Cmd {
	return s.waitForResult()
}
