package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
)

// DefaultDebounce is how long a burst of writes must stay quiet before a
// reload starts.
const DefaultDebounce = 500 * time.Millisecond

// Source re-reads the current logs.
type Source interface {
	Reload(ctx context.Context) (*analyzer.Result, error)
}

// Reloader turns file events into debounced reloads.
type Reloader struct {
	source   Source
	debounce time.Duration
	onResult func(*analyzer.Result)
	onError  func(error)
}

type Option func(*Reloader)

func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) { r.debounce = d }
}

// OnResult is called after every successful reload.
func OnResult(fn func(*analyzer.Result)) Option {
	return func(r *Reloader) { r.onResult = fn }
}

// OnError is called when a reload fails. The previous result stays
// current.
func OnError(fn func(error)) Option {
	return func(r *Reloader) { r.onError = fn }
}

func NewReloader(source Source, opts ...Option) *Reloader {
	r := &Reloader{source: source, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reloads after each quiet period following events, until ctx is done
// or events is closed.
func (r *Reloader) Run(ctx context.Context, events <-chan FileEvent) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				stop()
				if fire != nil {
					r.reload(ctx)
				}
				return nil
			}
			util.LogDebug(fmt.Sprintf("Change detected: %s (%s)", ev.Path, ev.Operation))
			stop()
			timer = time.NewTimer(r.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			r.reload(ctx)
		}
	}
}

func (r *Reloader) reload(ctx context.Context) {
	start := time.Now()
	result, err := r.source.Reload(ctx)
	if err != nil {
		util.LogWarn(fmt.Sprintf("Reload failed, keeping previous result: %v", err))
		if r.onError != nil {
			r.onError(err)
		}
		return
	}
	util.LogInfo(fmt.Sprintf("Reloaded %d events in %s", len(result.Events), util.FormatDuration(time.Since(start))))
	if r.onResult != nil {
		r.onResult(result)
	}
}
