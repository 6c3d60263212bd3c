package control

import "time"

const (
	rampInterval = 50 * time.Millisecond

	keyBPM       = "bpm"
	keyTarget    = "bpm_target"
	keyDuration  = "bpm_change_time"
	keyRamping   = "changingBPM"
	keyCountdown = "bpm_change_countdown"
)

// Ramp moves the tempo of a deck to bpm_target over bpm_change_time
// seconds. A press starts the ramp, a press while ramping stops it where it
// is. The LED is lit while changingBPM is set.
type Ramp struct {
	*Button
	Interval time.Duration

	timer int
	from  float64
	total time.Duration
	left  time.Duration
}

// NewRamp binds the ramp to the channel in opts.Group. A zero interval
// means 50ms.
func NewRamp(env Env, interval time.Duration, opts ButtonOptions) *Ramp {
	opts.InKey, opts.OutKey = keyRamping, keyRamping
	if interval <= 0 {
		interval = rampInterval
	}
	r := &Ramp{Button: newButton(env, opts), Interval: interval}
	r.self = r
	return r
}

// Ramping reports whether the tempo is moving.
func (r *Ramp) Ramping() bool {
	return r.timer != 0
}

func (r *Ramp) Input(msg Message) {
	if !r.bound() || !r.IsPress(msg) {
		return
	}
	if r.Ramping() {
		r.finish()
		return
	}
	r.start()
}

func (r *Ramp) start() {
	if r.env.Timers == nil {
		r.log().Error("bpm ramp: no timers")
		return
	}
	g, e := r.Group.String(), r.env.Engine
	r.total = time.Duration(e.GetValue(g, keyDuration) * float64(time.Second))
	if r.total < r.Interval {
		r.total = r.Interval
	}
	r.left = r.total
	r.from = e.GetValue(g, keyBPM)
	r.timer = r.env.Timers.BeginTimer(r.Interval, r.tick, false)
	if r.timer == 0 {
		r.log().Error("bpm changer timer setup failed")
		return
	}
	e.SetValue(g, keyRamping, 1)
	e.SetValue(g, keyCountdown, r.left.Seconds())
	r.log().Debugf("%s: bpm %.1f -> %.1f in %v", g, r.from, e.GetValue(g, keyTarget), r.total)
}

func (r *Ramp) tick() {
	g, e := r.Group.String(), r.env.Engine
	target := e.GetValue(g, keyTarget)
	r.left -= r.Interval
	if r.left <= 0 {
		e.SetValue(g, keyBPM, target)
		r.finish()
		return
	}
	rest := float64(r.left) / float64(r.total)
	e.SetValue(g, keyBPM, target+(r.from-target)*rest)
	e.SetValue(g, keyCountdown, r.left.Seconds())
}

func (r *Ramp) finish() {
	if r.timer != 0 {
		r.env.Timers.StopTimer(r.timer)
		r.timer = 0
	}
	g, e := r.Group.String(), r.env.Engine
	e.SetValue(g, keyCountdown, 0)
	e.SetValue(g, keyRamping, 0)
}

// Disconnect stops a running ramp, the deck it drives is about to change.
func (r *Ramp) Disconnect() {
	if r.Ramping() {
		r.finish()
	}
	r.Button.Disconnect()
}
