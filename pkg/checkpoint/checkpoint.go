// Package checkpoint implements the engine facade's background
// checkpoint task: flush any pending WAL buffer, then garbage-collect
// segments older than the retention window. Single-flight guarded so a
// size-triggered run never overlaps the ticker's own run.
package checkpoint

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Syras206/slimcryptdb/pkg/wal"
)

// Flusher is the subset of *wal.Writer a checkpoint needs: flushing the
// pending in-memory buffer to the active segment before pruning.
type Flusher interface {
	Sync() error
}

// Manager runs the scheduled checkpoint task and exposes a manual
// trigger for the size-based async path.
type Manager struct {
	dir       string
	writer    Flusher
	retention time.Duration
	interval  time.Duration
	maxSize   int64

	running int32 // 0 or 1, guarded with atomic CAS for the single-flight check

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
	closed bool

	lastErr error
}

// Options configures a Manager. Interval is the ticker cadence, Retention
// the WAL lifecycle's default retention window, and MaxWalSize the
// size-based async trigger's threshold.
type Options struct {
	Retention time.Duration
	Interval  time.Duration
	MaxWalSize int64
}

// DefaultOptions returns the package's documented defaults: a 30s cadence
// and a 24h retention window.
func DefaultOptions() Options {
	return Options{
		Retention: wal.DefaultRetention,
		Interval:  30 * time.Second,
	}
}

// NewManager builds a checkpoint manager over dir's WAL segments, using
// writer to flush the pending buffer before each run.
func NewManager(dir string, writer Flusher, opts Options) *Manager {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = wal.DefaultRetention
	}
	return &Manager{
		dir:       dir,
		writer:    writer,
		retention: opts.Retention,
		interval:  opts.Interval,
		maxSize:   opts.MaxWalSize,
		done:      make(chan struct{}),
	}
}

// Start launches the background ticker. Safe to call once per Manager.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ticker != nil || m.closed {
		return
	}
	m.ticker = time.NewTicker(m.interval)
	go m.loop()
}

func (m *Manager) loop() {
	for {
		select {
		case <-m.ticker.C:
			_ = m.Run(time.Now())
		case <-m.done:
			return
		}
	}
}

// Stop cancels the background ticker. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	if m.ticker != nil {
		m.ticker.Stop()
		close(m.done)
	}
}

// Run flushes the pending buffer then prunes segments older than the
// retention window as of now. Re-entry is guarded: a Run already in
// flight makes a concurrent call a no-op that returns nil immediately.
func (m *Manager) Run(now time.Time) error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&m.running, 0)

	if m.writer != nil {
		if err := m.writer.Sync(); err != nil {
			m.recordErr(err)
			return err
		}
	}

	cutoff := now.Add(-m.retention).UnixMilli()
	if err := wal.PruneOlderThan(m.dir, cutoff); err != nil {
		m.recordErr(err)
		return err
	}
	m.recordErr(nil)
	return nil
}

// TriggerIfOversized fires an async Run when bufferedEntries × 1000
// exceeds the configured maxWalSize. The checkpoint itself still obeys
// the single-flight guard in Run.
func (m *Manager) TriggerIfOversized(bufferedEntries int64) {
	if m.maxSize <= 0 {
		return
	}
	if bufferedEntries*1000 <= m.maxSize {
		return
	}
	go func() {
		_ = m.Run(time.Now())
	}()
}

func (m *Manager) recordErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

// LastError returns the error from the most recently completed Run, or
// nil if the last run succeeded (or none has run yet).
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}
