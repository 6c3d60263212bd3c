package engine

import (
	"context"
	"time"
)

type timer struct {
	id      int
	oneShot bool
	cb      func()
	stop    func()
	stopped bool
}

// Post hands fn over to the loop goroutine. It blocks while the queue is
// full; once Run has returned fn is dropped.
func (e *Engine) Post(fn func()) {
	select {
	case <-e.done:
		return
	default:
	}
	select {
	case e.events <- fn:
	case <-e.done:
	}
}

// Run executes posted work until ctx is canceled. An engine runs once.
func (e *Engine) Run(ctx context.Context) error {
	defer e.stopLoop()
	for {
		select {
		case <-ctx.Done():
			e.stopAllTimers()
			return ctx.Err()
		case fn := <-e.events:
			fn()
		}
	}
}

// BeginTimer schedules cb on the loop goroutine after interval, once or
// repeatedly. It returns 0 for a non-positive interval.
func (e *Engine) BeginTimer(interval time.Duration, cb func(), oneShot bool) int {
	if interval <= 0 || cb == nil {
		e.log.Module("engine").Errorf("invalid timer: interval %v", interval)
		return 0
	}
	e.nextTimer++
	t := &timer{id: e.nextTimer, oneShot: oneShot, cb: cb}
	e.timers[t.id] = t

	fire := func() {
		e.Post(func() { e.fire(t) })
	}
	if oneShot {
		tm := time.AfterFunc(interval, fire)
		t.stop = func() { tm.Stop() }
	} else {
		ticker := time.NewTicker(interval)
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					fire()
				}
			}
		}()
		t.stop = func() {
			ticker.Stop()
			close(done)
		}
	}
	return t.id
}

func (e *Engine) fire(t *timer) {
	if t.stopped {
		return
	}
	if t.oneShot {
		t.stopped = true
		delete(e.timers, t.id)
	}
	t.cb()
}

// StopTimer cancels a timer. Unknown ids are ignored.
func (e *Engine) StopTimer(id int) {
	t, ok := e.timers[id]
	if !ok {
		return
	}
	t.stopped = true
	t.stop()
	delete(e.timers, id)
}

func (e *Engine) stopLoop() {
	e.stopOnce.Do(func() { close(e.done) })
}

func (e *Engine) stopAllTimers() {
	for id := range e.timers {
		e.StopTimer(id)
	}
}
