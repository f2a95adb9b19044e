package timing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sarchlab/pktmux/hooking"
)

// HookPosBeforeTick fires right before a tick is handed to the Ticker.
var HookPosBeforeTick = &hooking.HookPos{Name: "BeforeTick"}

// HookPosAfterTick fires right after the Ticker returns.
var HookPosAfterTick = &hooking.HookPos{Name: "AfterTick"}

// ErrNegativeInterval is returned when a loop is configured with a negative
// tick interval.
var ErrNegativeInterval = errors.New("timing: tick interval cannot be negative")

// A Ticker is an object that updates states with ticks.
type Ticker interface {
	Tick(tick uint64) error
}

// TickerFunc adapts a function into a Ticker.
type TickerFunc func(tick uint64) error

// Tick calls f.
func (f TickerFunc) Tick(tick uint64) error {
	return f(tick)
}

// Loop calls a Ticker once per interval. With a virtual clock attached, the
// loop advances the clock by one interval after each tick instead of
// sleeping.
type Loop struct {
	*hooking.HookableBase

	ticker   Ticker
	interval time.Duration
	maxTicks uint64
	virtual  *ManualClock

	lock     sync.Mutex
	current  uint64
	isPaused bool
	resume   chan struct{}
}

// NewLoop creates a loop that ticks forever (until the context passed to Run
// is cancelled) every interval.
func NewLoop(ticker Ticker, interval time.Duration) (*Loop, error) {
	if interval < 0 {
		return nil, ErrNegativeInterval
	}

	return &Loop{
		HookableBase: hooking.NewHookableBase(),
		ticker:       ticker,
		interval:     interval,
	}, nil
}

// WithMaxTicks makes the loop stop after n ticks. Zero means no limit.
func (l *Loop) WithMaxTicks(n uint64) *Loop {
	l.maxTicks = n
	return l
}

// WithVirtualClock makes the loop advance c instead of sleeping.
func (l *Loop) WithVirtualClock(c *ManualClock) *Loop {
	l.virtual = c
	return l
}

// Name returns the name of the loop.
func (l *Loop) Name() string {
	return "Loop"
}

// MaxTicks returns the configured tick limit, zero meaning unlimited.
func (l *Loop) MaxTicks() uint64 {
	return l.maxTicks
}

// CurrentTick returns the number of the tick that is running or that ran
// last.
func (l *Loop) CurrentTick() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.current
}

// Run ticks until the tick limit is reached, the context is cancelled or the
// Ticker fails. Cancellation is a normal stop and returns nil; the context is
// only checked between ticks, so a tick is never cut in half.
func (l *Loop) Run(ctx context.Context) error {
	for tick := uint64(0); l.maxTicks == 0 || tick < l.maxTicks; tick++ {
		if !l.waitWhilePaused(ctx) {
			return nil
		}

		l.lock.Lock()
		l.current = tick
		l.lock.Unlock()

		hookCtx := hooking.HookCtx{
			Domain: l,
			Pos:    HookPosBeforeTick,
			Item:   tick,
		}
		l.InvokeHook(hookCtx)

		err := l.ticker.Tick(tick)

		hookCtx.Pos = HookPosAfterTick
		l.InvokeHook(hookCtx)

		if err != nil {
			return err
		}

		if !l.wait(ctx) {
			return nil
		}
	}

	return nil
}

func (l *Loop) wait(ctx context.Context) bool {
	if l.virtual != nil {
		l.virtual.Advance(l.interval)
		return ctx.Err() == nil
	}

	if l.interval == 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (l *Loop) waitWhilePaused(ctx context.Context) bool {
	l.lock.Lock()
	resume := l.resume
	paused := l.isPaused
	l.lock.Unlock()

	if !paused {
		return ctx.Err() == nil
	}

	select {
	case <-ctx.Done():
		return false
	case <-resume:
		return ctx.Err() == nil
	}
}

// Pause stops the loop from starting new ticks until Continue is called. A
// tick that is already running completes.
func (l *Loop) Pause() {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.isPaused {
		return
	}

	l.isPaused = true
	l.resume = make(chan struct{})
}

// Continue resumes a paused loop.
func (l *Loop) Continue() {
	l.lock.Lock()
	defer l.lock.Unlock()

	if !l.isPaused {
		return
	}

	l.isPaused = false
	close(l.resume)
}

// IsPaused tells whether Pause has been called without a matching Continue.
func (l *Loop) IsPaused() bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.isPaused
}
