// Package progress turns per-chunk transfer updates into elapsed time,
// throughput and ETA figures, and renders them on a terminal.
//
// A Tracker is attached to a transfer session through its Observe method,
// which satisfies transfer.ProgressFunc:
//
//	tracker := progress.NewTracker(progress.NewBarRenderer(os.Stderr))
//	sender.OnProgress(tracker.Observe)
//	res, err := sender.SendFile(conn, path)
//	tracker.Finish()
//
// Progress output is advisory. Renderer failures are logged and otherwise
// ignored.
package progress

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chunksend/transfer"
)

// speedAlpha is the weight of the newest sample in the throughput average.
const speedAlpha = 0.3

// DefaultRenderInterval is the minimum time between two intermediate renders.
const DefaultRenderInterval = 100 * time.Millisecond

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider = transfer.TimeProvider

// Snapshot is the tracker state handed to a Renderer.
type Snapshot struct {
	Transferred uint64
	Total       uint64
	TotalKnown  bool
	Chunks      uint64
	Elapsed     time.Duration
	// Speed is the smoothed throughput in bytes per second.
	Speed float64
	// ETA is zero when the total is unknown or no speed sample exists yet.
	ETA  time.Duration
	Done bool
}

// Fraction returns the completed share in [0, 1]. It is 0 when the total is
// unknown and 1 for a known total of zero.
func (s Snapshot) Fraction() float64 {
	if !s.TotalKnown {
		return 0
	}
	if s.Total == 0 {
		return 1
	}
	f := float64(s.Transferred) / float64(s.Total)
	if f > 1 {
		return 1
	}
	return f
}

// Renderer displays snapshots.
type Renderer interface {
	Render(Snapshot) error
	Finish(Snapshot) error
}

// Tracker computes transfer statistics from a monotonically increasing byte
// count. It is safe for concurrent use.
type Tracker struct {
	mu           sync.Mutex
	renderer     Renderer
	timeProvider TimeProvider
	interval     time.Duration

	started     time.Time
	lastSample  time.Time
	lastRender  time.Time
	rendered    bool
	snap        Snapshot
	renderFails int
}

// NewTracker creates a Tracker that renders through r. A nil r disables
// rendering; statistics are still computed.
func NewTracker(r Renderer) *Tracker {
	tp := transfer.DefaultTimeProvider{}
	now := tp.Now()
	return &Tracker{
		renderer:     r,
		timeProvider: tp,
		interval:     DefaultRenderInterval,
		started:      now,
		lastSample:   now,
	}
}

// SetTimeProvider sets a custom time provider for deterministic testing and
// restarts the elapsed clock.
func (t *Tracker) SetTimeProvider(tp TimeProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tp == nil {
		tp = transfer.DefaultTimeProvider{}
	}
	t.timeProvider = tp
	t.started = tp.Now()
	t.lastSample = t.started
}

// SetRenderInterval sets the minimum time between intermediate renders. Zero
// renders on every update.
func (t *Tracker) SetRenderInterval(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d
}

// Observe records a transfer progress update. Its signature matches
// transfer.ProgressFunc.
func (t *Tracker) Observe(p transfer.Progress) {
	t.update(p.Transferred, p.Total, p.TotalKnown, p.Chunks)
}

// Update records that transferred bytes out of total have been moved.
func (t *Tracker) Update(transferred, total uint64, totalKnown bool) {
	t.update(transferred, total, totalKnown, 0)
}

func (t *Tracker) update(transferred, total uint64, totalKnown bool, chunks uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.timeProvider.Now()
	if transferred < t.snap.Transferred {
		logrus.WithFields(logrus.Fields{
			"function":    "Update",
			"transferred": transferred,
			"previous":    t.snap.Transferred,
		}).Debug("Ignoring non-monotonic progress update")
		return
	}

	t.updateSpeed(transferred-t.snap.Transferred, now)

	t.snap.Transferred = transferred
	t.snap.Total = total
	t.snap.TotalKnown = totalKnown
	if chunks > 0 {
		t.snap.Chunks = chunks
	} else {
		t.snap.Chunks++
	}
	t.snap.Elapsed = t.timeProvider.Since(t.started)
	t.snap.ETA = t.eta()

	if t.rendered && now.Sub(t.lastRender) < t.interval {
		return
	}
	t.lastRender = now
	t.rendered = true
	t.render(false)
}

// updateSpeed folds one sample into the exponential moving average.
func (t *Tracker) updateSpeed(delta uint64, now time.Time) {
	duration := now.Sub(t.lastSample).Seconds()
	if duration <= 0 {
		return
	}

	instantSpeed := float64(delta) / duration
	if t.snap.Speed == 0 {
		t.snap.Speed = instantSpeed
	} else {
		t.snap.Speed = (1-speedAlpha)*t.snap.Speed + speedAlpha*instantSpeed
	}
	t.lastSample = now
}

func (t *Tracker) eta() time.Duration {
	if !t.snap.TotalKnown || t.snap.Speed <= 0 || t.snap.Transferred >= t.snap.Total {
		return 0
	}
	remaining := float64(t.snap.Total - t.snap.Transferred)
	return time.Duration(remaining / t.snap.Speed * float64(time.Second))
}

// Snapshot returns the current statistics.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.snap
	snap.Elapsed = t.timeProvider.Since(t.started)
	return snap
}

// Finish marks the transfer complete and renders the final line.
func (t *Tracker) Finish() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Elapsed = t.timeProvider.Since(t.started)
	t.snap.ETA = 0
	t.snap.Done = true
	if !t.snap.TotalKnown {
		t.snap.Total = t.snap.Transferred
		t.snap.TotalKnown = true
	}
	t.render(true)
	return t.snap
}

func (t *Tracker) render(final bool) {
	if t.renderer == nil {
		return
	}

	var err error
	if final {
		err = t.renderer.Finish(t.snap)
	} else {
		err = t.renderer.Render(t.snap)
	}
	if err == nil {
		return
	}

	t.renderFails++
	entry := logrus.WithFields(logrus.Fields{
		"function": "render",
		"failures": t.renderFails,
		"error":    err.Error(),
	})
	if t.renderFails == 1 {
		entry.Warn("Progress rendering failed")
		return
	}
	entry.Debug("Progress rendering failed")
}
