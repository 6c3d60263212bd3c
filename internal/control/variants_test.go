package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimers struct {
	next     int
	interval time.Duration
	cb       func()
	oneShot  bool
	stopped  []int
}

func (f *fakeTimers) BeginTimer(interval time.Duration, cb func(), oneShot bool) int {
	f.next++
	f.interval, f.cb, f.oneShot = interval, cb, oneShot
	return f.next
}

func (f *fakeTimers) StopTimer(id int) {
	f.stopped = append(f.stopped, id)
}

func noteOn(status byte) Message {
	return Message{Status: status, Value: 127}
}

func TestResetButton(t *testing.T) {
	env, rec, _ := newTestEnv()
	rec.Engine.SetValue("[Channel1]", "pregain", 0.8)
	b := NewResetButton(env, 0.5, ButtonOptions{
		Options: Options{Group: Channel(1), Key: "pregain", MIDI: Address{0x90, 0x34}},
		Press:   PressOnNoteOn,
	})
	b.Connect()
	assert.Zero(t, b.Subscriptions(), "the LED belongs to the level display")

	b.Input(Message{Status: 0x80, Value: 64})
	assert.Equal(t, 0.8, rec.Engine.GetValue("[Channel1]", "pregain"))
	b.Input(noteOn(0x90))
	assert.Equal(t, 0.5, rec.Engine.GetParameter("[Channel1]", "pregain"))
}

func TestHighPassFilter(t *testing.T) {
	env, rec, out := newTestEnv()
	f := NewFilter(env, HighPass, 2, Address{0x90, 0x2b}, Address{0xb0, 0x0f})
	g := "[EffectRack1_EffectUnit2_Effect1]"
	f.Button.Connect()
	f.Button.Trigger()
	assert.Equal(t, sent{0x90, 0x2b, 0}, out.last())

	f.Knob.Input(Message{Status: 0xb0, Value: 127})
	assert.Empty(t, rec.calls, "the knob is remembered while the filter is out")

	f.Button.Input(noteOn(0x90))
	assert.True(t, f.Enabled())
	assert.Equal(t, 1.0, rec.Engine.GetParameter(g, "parameter3"))
	assert.Equal(t, sent{0x90, 0x2b, 127}, out.last())

	f.Knob.Input(Message{Status: 0xb0, Value: 0})
	assert.Zero(t, rec.Engine.GetParameter(g, "parameter3"))
	f.Knob.Input(Message{Status: 0xb0, Value: 127})

	f.Button.Input(Message{Status: 0x80, Value: 64})
	assert.True(t, f.Enabled(), "note-off is a release")

	f.Button.Input(noteOn(0x90))
	assert.False(t, f.Enabled())
	assert.Zero(t, rec.Engine.GetParameter(g, "parameter3"))
	assert.Equal(t, sent{0x90, 0x2b, 0}, out.last())
}

func TestLowPassFilter(t *testing.T) {
	env, rec, _ := newTestEnv()
	f := NewFilter(env, LowPass, 1, Address{0x90, 0x2d}, Address{0xb0, 0x09})
	g := "[EffectRack1_EffectUnit1_Effect1]"

	f.Button.Input(noteOn(0x90))
	assert.Equal(t, 1.0, rec.Engine.GetParameter(g, "parameter1"), "untouched knob stays open")
	f.Knob.Input(Message{Status: 0xb0, Value: 0})
	assert.Zero(t, rec.Engine.GetParameter(g, "parameter1"))
	f.Button.Input(noteOn(0x90))
	assert.Equal(t, 1.0, rec.Engine.GetParameter(g, "parameter1"))
}

func TestLevelLED(t *testing.T) {
	env, rec, out := newTestEnv()
	e := rec.Engine
	l := NewLevelLED(env, LevelOptions{
		Group: Channel(1), Key: "pregain",
		Status: 0x90, Red: 0x34, Yellow: 0x58, Green: 0x7c,
		PeakKey: "PeakIndicator",
	})
	l.Connect()
	require.Equal(t, 1, e.Connections("[Channel1]", "PeakIndicator"))

	e.SetValue("[Channel1]", "pregain", 0.5)
	assert.Equal(t, sent{0x80, 0x34, 0}, out.last())
	e.SetValue("[Channel1]", "pregain", 0.3)
	assert.Equal(t, sent{0x90, 0x7c, 127}, out.last())
	e.SetValue("[Channel1]", "pregain", 0.7)
	assert.Equal(t, sent{0x90, 0x58, 127}, out.last())

	e.SetValue("[Channel1]", "PeakIndicator", 1)
	assert.Equal(t, sent{0x90, 0x34, 127}, out.last())
	e.SetValue("[Channel1]", "pregain", 0.5)
	assert.Equal(t, sent{0x90, 0x34, 127}, out.last(), "clipping wins")
	e.SetValue("[Channel1]", "PeakIndicator", 0)
	assert.Equal(t, sent{0x80, 0x34, 0}, out.last())

	// l.Input is a no-op
	l.Input(noteOn(0x90))
	assert.Empty(t, rec.calls)
}

func TestLevelLEDFollowsDeck(t *testing.T) {
	env, rec, out := newTestEnv()
	e := rec.Engine
	l := NewLevelLED(env, LevelOptions{
		Group: Equalizer(1), Key: "parameter3",
		Status: 0x91, Red: 0x30, Yellow: 0x54, Green: 0x78,
		Tolerance: 0.05, PeakKey: "PeakIndicator",
	})
	d := NewDeck(env.Log, 1, 3)
	d.AddControl("high", l)
	d.ReconnectControls(nil)

	e.SetValue("[EqualizerRack1_[Channel1]_Effect1]", "parameter3", 0.53)
	assert.Equal(t, sent{0x81, 0x30, 0}, out.last())

	d.Toggle()
	assert.Equal(t, 1, e.Connections("[Channel3]", "PeakIndicator"))
	assert.Zero(t, e.Connections("[Channel1]", "PeakIndicator"))
	e.SetValue("[EqualizerRack1_[Channel3]_Effect1]", "parameter3", 0.6)
	assert.Equal(t, sent{0x91, 0x54, 127}, out.last())
}

func TestBeatLED(t *testing.T) {
	env, rec, out := newTestEnv()
	timers := &fakeTimers{}
	env.Timers = timers
	e := rec.Engine

	leader := func() (int, float64) { return LeadingDeck(e, []int{1, 2}) }
	assert.Zero(t, func() int { n, _ := leader(); return n }())

	e.SetValue("[Channel2]", "play", 1)
	e.SetValue("[Channel2]", "bpm", 120)
	e.SetValue("[Channel2]", "volume", 0.5)
	e.SetValue("[Channel1]", "play", 1)
	e.SetValue("[Channel1]", "bpm", 20)

	one := NewBeatLED(env, leader, Options{Group: Channel(1), MIDI: Address{0x90, 0x14}})
	two := NewBeatLED(env, leader, Options{Group: Channel(2), MIDI: Address{0x90, 0x14}})
	one.Connect()
	two.Connect()
	one.Trigger()
	assert.Empty(t, out.msgs)

	e.SetValue("[Channel1]", "beat_active", 1)
	assert.Empty(t, out.msgs, "deck 1 is too slow to lead")

	e.SetValue("[Channel2]", "beat_active", 1)
	assert.Equal(t, []sent{{0x90, 0x14, 127}}, out.msgs)
	assert.Equal(t, 250*time.Millisecond, timers.interval)
	assert.True(t, timers.oneShot)

	e.SetValue("[Channel2]", "beat_active", 0)
	assert.Len(t, out.msgs, 1)
	timers.cb()
	assert.Equal(t, sent{0x90, 0x14, 0}, out.last())

	e.SetValue("[Channel2]", "beat_active", 1)
	two.Disconnect()
	assert.Equal(t, []int{2}, timers.stopped, "a pending off timer dies with the LED")
}

func TestStepEncoder(t *testing.T) {
	env, rec, out := newTestEnv()
	e := rec.Engine
	g := "[Channel1]"
	e.SetValue(g, "bpm_target", 128)
	s := NewStepEncoder(env, StepOptions{
		Options: Options{Group: Channel(1), Key: "bpm_target", MIDI: Address{0xb0, 0x0f}},
		Low:     60,
		High:    240,
		Lock:    "changingBPM",
	})
	s.Connect()
	turn := func(v byte, n int) {
		for i := 0; i < n; i++ {
			s.Input(Message{Status: 0xb0, Value: v})
		}
	}

	turn(65, 2)
	assert.Equal(t, 128.0, e.GetValue(g, "bpm_target"))
	turn(65, 1)
	assert.Equal(t, 129.0, e.GetValue(g, "bpm_target"))

	turn(65, 2)
	turn(63, 3)
	assert.Equal(t, 129.0, e.GetValue(g, "bpm_target"), "turning back starts over")
	turn(63, 1)
	assert.Equal(t, 128.0, e.GetValue(g, "bpm_target"))
	assert.Equal(t, sent{0xb0, 0x0f, 48}, out.last())

	e.SetValue(g, "changingBPM", 1)
	turn(65, 3)
	assert.Equal(t, 128.0, e.GetValue(g, "bpm_target"), "locked while ramping")

	e.SetValue(g, "changingBPM", 0)
	e.SetValue(g, "bpm_target", 240)
	turn(65, 3)
	assert.Equal(t, 240.0, e.GetValue(g, "bpm_target"))
	assert.Equal(t, sent{0xb0, 0x0f, 127}, out.last())
}

func TestRingEncoder(t *testing.T) {
	env, rec, out := newTestEnv()
	e := rec.Engine
	r := NewRingEncoder(env, RingOptions{
		Options:  Options{Group: Channel(1), Key: "volume", MIDI: Address{0xb0, 0x00}, InScale: Offset(0.01)},
		Relative: true,
	})
	r.Connect()

	e.SetValue("[Channel1]", "volume", 0.5)
	assert.Equal(t, sent{0xb0, 0x00, 64}, out.last())
	r.Input(Message{Status: 0xb0, Value: 65})
	assert.InDelta(t, 0.51, e.GetParameter("[Channel1]", "volume"), 1e-9)
	assert.Equal(t, sent{0xb0, 0x00, 65}, out.last())
	r.Input(Message{Status: 0xb0, Value: 54})
	assert.InDelta(t, 0.41, e.GetParameter("[Channel1]", "volume"), 1e-9)

	abs := NewRingEncoder(env, RingOptions{Options: Options{Group: Channel(2), Key: "rate", MIDI: Address{0xb0, 0x01}}})
	abs.Input(Message{Status: 0xb0, Value: 127})
	assert.Equal(t, 1.0, e.GetValue("[Channel2]", "rate"))
}

func TestRamp(t *testing.T) {
	env, rec, out := newTestEnv()
	timers := &fakeTimers{}
	env.Timers = timers
	e := rec.Engine
	g := "[Channel1]"
	e.SetValue(g, "bpm", 120)
	e.SetValue(g, "bpm_target", 128)
	e.SetValue(g, "bpm_change_time", 1)

	r := NewRamp(env, 0, ButtonOptions{
		Options: Options{Group: Channel(1), MIDI: Address{0x91, 0x0f}},
		Press:   PressOnNoteOn,
	})
	r.Connect()
	r.Input(noteOn(0x91))
	require.True(t, r.Ramping())
	assert.Equal(t, 50*time.Millisecond, timers.interval)
	assert.False(t, timers.oneShot)
	assert.Equal(t, 1.0, e.GetValue(g, "changingBPM"))
	assert.Equal(t, 1.0, e.GetValue(g, "bpm_change_countdown"))
	assert.Equal(t, sent{0x91, 0x0f, 127}, out.last())

	for i := 0; i < 10; i++ {
		timers.cb()
	}
	assert.InDelta(t, 124, e.GetValue(g, "bpm"), 1e-9)
	assert.InDelta(t, 0.5, e.GetValue(g, "bpm_change_countdown"), 1e-9)

	for i := 0; i < 10; i++ {
		timers.cb()
	}
	assert.Equal(t, 128.0, e.GetValue(g, "bpm"))
	assert.False(t, r.Ramping())
	assert.Equal(t, []int{1}, timers.stopped)
	assert.Zero(t, e.GetValue(g, "changingBPM"))
	assert.Equal(t, sent{0x91, 0x0f, 0}, out.last())

	// a second press stops the ramp where it is
	e.SetValue(g, "bpm_target", 100)
	r.Input(noteOn(0x91))
	timers.cb()
	r.Input(Message{Status: 0x81, Value: 64})
	r.Input(noteOn(0x91))
	assert.False(t, r.Ramping())
	assert.Equal(t, []int{1, 2}, timers.stopped)
	assert.InDelta(t, 126.6, e.GetValue(g, "bpm"), 1e-9)
}
