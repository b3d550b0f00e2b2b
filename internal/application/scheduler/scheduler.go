package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Daily fires Job once a day at At (offset from midnight) in Location.
// A run still in progress when the next one comes due is not overlapped;
// the late trigger is skipped.
type Daily struct {
	At       time.Duration
	Location *time.Location
	Job      func(ctx context.Context) error
	Log      *slog.Logger

	// Now and After are swapped in tests.
	Now   func() time.Time
	After func(d time.Duration) <-chan time.Time

	running sync.Mutex
	wg      sync.WaitGroup
}

// NextRun returns the first trigger instant strictly after now.
func (d *Daily) NextRun(now time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, day := local.Date()
	h := int(d.At / time.Hour)
	mins := int((d.At % time.Hour) / time.Minute)

	next := time.Date(y, m, day, h, mins, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(y, m, day+1, h, mins, 0, 0, loc)
	}
	return next
}

// Run blocks until ctx is cancelled, then waits for an in-flight job.
func (d *Daily) Run(ctx context.Context) error {
	for {
		next := d.NextRun(d.now())
		d.log().Info("next auto order run scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			d.wg.Wait()
			return ctx.Err()
		case <-d.after(next.Sub(d.now())):
			d.fire(ctx)
		}
	}
}

func (d *Daily) fire(ctx context.Context) {
	if !d.running.TryLock() {
		d.log().Warn("previous auto order run still in progress, skipping")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.running.Unlock()

		start := d.now()
		if err := d.Job(ctx); err != nil {
			d.log().Error("auto order run failed", "error", err)
			return
		}
		d.log().Info("auto order run done", "took", d.now().Sub(start).String())
	}()
}

func (d *Daily) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Daily) after(dur time.Duration) <-chan time.Time {
	if d.After != nil {
		return d.After(dur)
	}
	return time.After(dur)
}

func (d *Daily) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}
