package storage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// FlushableBufferPool is the surface the background flusher needs
type FlushableBufferPool interface {
	GetDirtyPageCount() int
	GetPoolSize() uint32
	GetDirtyPages(maxPages int) []uint32
	FlushPage(pageID uint32) error
}

// DirtyPageFlusher writes dirty pages back in the background so that
// evictions rarely have to flush on the foreground path. The flush rate
// follows a PID controller on the dirty page ratio: gentle while the
// pool is mostly clean, aggressive when the dirty ratio climbs past the
// configured maximum.
type DirtyPageFlusher struct {
	bufferPool FlushableBufferPool
	config     FlusherConfig

	running       atomic.Bool
	flushesIssued atomic.Uint64
	pagesFlushed  atomic.Uint64

	// PID controller state
	mu        sync.Mutex
	integral  float64
	lastError float64
	lastRate  float64

	stopCh chan struct{}
	doneCh chan struct{}
}

// FlusherConfig tunes the background flusher
type FlusherConfig struct {
	// Dirty ratio the controller steers toward
	TargetDirtyRatio float64
	// Dirty ratio that triggers flushing at full rate
	MaxDirtyRatio float64
	// How often the dirty ratio is sampled
	CheckInterval time.Duration
	// Pages flushed per interval, lower and upper bounds
	MinFlushPages int
	MaxFlushPages int
	// Controller gains
	Kp float64
	Ki float64
	Kd float64
}

// FlusherStats describes the flusher's activity so far
type FlusherStats struct {
	FlushesIssued uint64
	PagesFlushed  uint64
	CurrentRate   float64
	DirtyRatio    float64
}

// DefaultFlusherConfig returns the default flusher tuning
func DefaultFlusherConfig() FlusherConfig {
	return FlusherConfig{
		TargetDirtyRatio: 0.60,
		MaxDirtyRatio:    0.80,
		CheckInterval:    100 * time.Millisecond,
		MinFlushPages:    10,
		MaxFlushPages:    100,
		Kp:               2.0,
		Ki:               0.5,
		Kd:               0.1,
	}
}

// NewDirtyPageFlusher creates a background flusher for the given pool.
// Out-of-range config values fall back to the defaults.
func NewDirtyPageFlusher(bp FlushableBufferPool, config FlusherConfig) *DirtyPageFlusher {
	defaults := DefaultFlusherConfig()
	if config.TargetDirtyRatio <= 0 || config.TargetDirtyRatio >= 1 {
		config.TargetDirtyRatio = defaults.TargetDirtyRatio
	}
	if config.MaxDirtyRatio <= config.TargetDirtyRatio || config.MaxDirtyRatio >= 1 {
		config.MaxDirtyRatio = defaults.MaxDirtyRatio
	}
	if config.CheckInterval < 10*time.Millisecond {
		config.CheckInterval = defaults.CheckInterval
	}
	if config.MinFlushPages <= 0 {
		config.MinFlushPages = defaults.MinFlushPages
	}
	if config.MaxFlushPages < config.MinFlushPages {
		config.MaxFlushPages = defaults.MaxFlushPages
	}

	return &DirtyPageFlusher{
		bufferPool: bp,
		config:     config,
		lastRate:   float64(config.MinFlushPages),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the background flush goroutine
func (f *DirtyPageFlusher) Start() error {
	if !f.running.CompareAndSwap(false, true) {
		return fmt.Errorf("dirty page flusher already running")
	}

	go f.flushLoop()
	return nil
}

// Stop halts the background goroutine and waits for it to exit
func (f *DirtyPageFlusher) Stop() error {
	if !f.running.Load() {
		return nil
	}

	close(f.stopCh)
	<-f.doneCh
	f.running.Store(false)
	return nil
}

// IsRunning reports whether the background goroutine is active
func (f *DirtyPageFlusher) IsRunning() bool {
	return f.running.Load()
}

func (f *DirtyPageFlusher) flushLoop() {
	defer close(f.doneCh)

	ticker := time.NewTicker(f.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.flushCycle()
		}
	}
}

// flushCycle samples the dirty ratio and flushes accordingly
func (f *DirtyPageFlusher) flushCycle() {
	poolSize := f.bufferPool.GetPoolSize()
	if poolSize == 0 {
		return
	}

	dirtyRatio := float64(f.bufferPool.GetDirtyPageCount()) / float64(poolSize)
	budget := f.flushBudget(dirtyRatio)
	if budget == 0 {
		return
	}

	flushed := f.flushDirtyPages(budget)
	if flushed > 0 {
		f.flushesIssued.Add(1)
		f.pagesFlushed.Add(uint64(flushed))
	}
}

// flushBudget computes how many pages to flush this cycle
func (f *DirtyPageFlusher) flushBudget(dirtyRatio float64) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Below target nothing needs to happen
	if dirtyRatio < f.config.TargetDirtyRatio {
		f.lastRate = 0
		return 0
	}

	controlError := dirtyRatio - f.config.TargetDirtyRatio

	// Integral with anti-windup
	f.integral += controlError
	if f.integral > 10 {
		f.integral = 10
	} else if f.integral < -10 {
		f.integral = -10
	}

	derivative := controlError - f.lastError
	f.lastError = controlError

	output := f.config.Kp*controlError + f.config.Ki*f.integral + f.config.Kd*derivative
	if dirtyRatio >= f.config.MaxDirtyRatio {
		output = 1.0
	}

	span := float64(f.config.MaxFlushPages - f.config.MinFlushPages)
	rate := float64(f.config.MinFlushPages) + output*span
	if rate < float64(f.config.MinFlushPages) {
		rate = float64(f.config.MinFlushPages)
	} else if rate > float64(f.config.MaxFlushPages) {
		rate = float64(f.config.MaxFlushPages)
	}

	f.lastRate = rate
	return int(rate)
}

// flushDirtyPages flushes up to maxPages dirty pages via the pool
func (f *DirtyPageFlusher) flushDirtyPages(maxPages int) int {
	flushed := 0
	for _, pageID := range f.bufferPool.GetDirtyPages(maxPages) {
		if err := f.bufferPool.FlushPage(pageID); err == nil {
			flushed++
		}
	}
	return flushed
}

// TriggerFlush runs one flush pass immediately, outside the ticker
func (f *DirtyPageFlusher) TriggerFlush(maxPages int) int {
	if maxPages <= 0 {
		maxPages = f.config.MaxFlushPages
	}
	return f.flushDirtyPages(maxPages)
}

// GetStats returns current flusher statistics
func (f *DirtyPageFlusher) GetStats() FlusherStats {
	f.mu.Lock()
	rate := f.lastRate
	f.mu.Unlock()

	var ratio float64
	if poolSize := f.bufferPool.GetPoolSize(); poolSize > 0 {
		ratio = float64(f.bufferPool.GetDirtyPageCount()) / float64(poolSize)
	}

	return FlusherStats{
		FlushesIssued: f.flushesIssued.Load(),
		PagesFlushed:  f.pagesFlushed.Load(),
		CurrentRate:   rate,
		DirtyRatio:    ratio,
	}
}
