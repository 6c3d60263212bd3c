package control

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k2mapper/internal/engine"
	"k2mapper/internal/logger"
)

type sent struct {
	status, data1, data2 byte
}

type midiRecorder struct {
	msgs []sent
}

func (m *midiRecorder) SendShortMsg(status, data1, data2 byte) {
	m.msgs = append(m.msgs, sent{status, data1, data2})
}

func (m *midiRecorder) last() sent {
	if len(m.msgs) == 0 {
		return sent{}
	}
	return m.msgs[len(m.msgs)-1]
}

// recorder logs the writes controls make to the engine.
type recorder struct {
	*engine.Engine
	calls []string
}

func (r *recorder) SetValue(group, key string, value float64) {
	r.calls = append(r.calls, fmt.Sprintf("set %s,%s=%g", group, key, value))
	r.Engine.SetValue(group, key, value)
}

func (r *recorder) SetParameter(group, key string, value float64) {
	r.calls = append(r.calls, fmt.Sprintf("param %s,%s", group, key))
	r.Engine.SetParameter(group, key, value)
}

func (r *recorder) SoftTakeover(group, key string, enable bool) {
	r.calls = append(r.calls, fmt.Sprintf("takeover %s,%s %t", group, key, enable))
	r.Engine.SoftTakeover(group, key, enable)
}

func (r *recorder) SoftTakeoverIgnoreNextValue(group, key string) {
	r.calls = append(r.calls, fmt.Sprintf("ignore-next %s,%s", group, key))
	r.Engine.SoftTakeoverIgnoreNextValue(group, key)
}

func (r *recorder) reset() {
	r.calls = nil
}

func newTestEnv() (Env, *recorder, *midiRecorder) {
	log := logger.NewDiscard()
	rec := &recorder{Engine: engine.New(log)}
	out := &midiRecorder{}
	return Env{Engine: rec, MIDI: out, Log: log}, rec, out
}

func press(value byte) Message {
	return Message{Status: 0x90, Value: value}
}

func TestLinearRoundTrip(t *testing.T) {
	env, _, _ := newTestEnv()
	for _, max := range []float64{0, 127, 100} {
		c := NewControl(env, Options{Max: max})
		for v := 0.0; v <= c.Max; v++ {
			assert.InDelta(t, v, c.OutValueScale(c.InValueScale(v)), 1e-9)
		}
	}
}

func TestControlInputOutput(t *testing.T) {
	env, rec, out := newTestEnv()
	c := NewControl(env, Options{Group: Channel(1), Key: "volume", MIDI: Address{0xb0, 0x04}})

	c.Input(Message{Value: 127})
	assert.Equal(t, []string{"set [Channel1],volume=1"}, rec.calls)

	c.Connect()
	rec.Engine.SetValue("[Channel1]", "volume", 0.5)
	assert.Equal(t, sent{0xb0, 0x04, 64}, out.last())
	assert.Equal(t, 1, c.Subscriptions())

	c.Connect()
	assert.Equal(t, 1, rec.Connections("[Channel1]", "volume"), "reconnect replaces the subscription")
}

func TestControlShiftedSend(t *testing.T) {
	env, _, out := newTestEnv()
	c := NewControl(env, Options{MIDI: Address{0x90, 0x10}, ShiftedSend: ShiftChannel, ShiftOffset: 1})
	c.Send(127)
	assert.Equal(t, []sent{{0x90, 0x10, 127}, {0x91, 0x10, 127}}, out.msgs)

	out.msgs = nil
	c.ShiftedSend = ShiftControl
	c.ShiftOffset = 0x24
	c.Send(200)
	assert.Equal(t, []sent{{0x90, 0x10, 127}, {0x90, 0x34, 127}}, out.msgs)
}

func TestInertControl(t *testing.T) {
	env, rec, out := newTestEnv()
	c := NewControl(env, Options{MIDI: Address{0x90, 0x10}})

	c.Disconnect()
	c.Connect()
	c.Trigger()
	c.Input(press(127))
	c.Disconnect()
	c.Disconnect()
	assert.Empty(t, rec.calls)
	assert.Empty(t, out.msgs)
	assert.Zero(t, c.Subscriptions())
}

func TestButtonToggle(t *testing.T) {
	env, rec, _ := newTestEnv()
	b := NewButton(env, ButtonOptions{Options: Options{Group: Channel(1), Key: "pfl"}})

	b.Input(press(127))
	b.Input(press(0))
	b.Input(press(127))
	b.Input(press(0))
	assert.Equal(t, []string{"set [Channel1],pfl=1", "set [Channel1],pfl=0"}, rec.calls)
}

func TestButtonHold(t *testing.T) {
	env, rec, _ := newTestEnv()
	b := NewButton(env, ButtonOptions{Options: Options{Group: Channel(1), Key: "rate_temp_up"}, Hold: true})

	b.Input(press(127))
	b.Input(press(0))
	b.Input(press(127))
	assert.Equal(t, []string{
		"set [Channel1],rate_temp_up=1",
		"set [Channel1],rate_temp_up=0",
		"set [Channel1],rate_temp_up=1",
	}, rec.calls)
}

func TestHoldReleaseAfterRebinding(t *testing.T) {
	env, rec, _ := newTestEnv()
	cue := NewCueButton(env, ButtonOptions{Options: Options{Group: Channel(1)}})
	cue.Connect()

	cue.Input(press(127))
	cue.Shift()
	cue.Input(press(0))
	assert.Zero(t, rec.Engine.GetValue("[Channel1]", "cue_default"), "release after shift")
	assert.False(t, cue.Held())

	d := NewDeck(env.Log, 1, 3)
	hotcue := NewHotcueButton(env, 1, ButtonOptions{Options: Options{Group: Channel(1)}})
	d.AddControl("hotcue", hotcue)
	d.ReconnectControls(nil)

	rec.reset()
	hotcue.Input(press(127))
	d.Toggle()
	hotcue.Input(press(0))
	assert.Equal(t, []string{
		"set [Channel1],hotcue_1_activate=1",
		"set [Channel1],hotcue_1_activate=0",
	}, rec.calls)
	assert.Equal(t, "[Channel3]", hotcue.Group.String())

	hotcue.Input(press(127))
	hotcue.Input(press(0))
	assert.Zero(t, rec.Engine.GetValue("[Channel3]", "hotcue_1_activate"))
}

func TestButtonPressPolicy(t *testing.T) {
	env, _, _ := newTestEnv()
	b := NewButton(env, ButtonOptions{Press: PressOnNoteOn})
	assert.True(t, b.IsPress(Message{Status: 0x9f, Value: 127}))
	assert.False(t, b.IsPress(Message{Status: 0x8f, Value: 127}))
	assert.False(t, b.IsPress(Message{Status: 0x9f, Value: 0}))

	b.Press = PressOnValue
	assert.True(t, b.IsPress(Message{Status: 0x8f, Value: 127}))
}

func TestButtonLight(t *testing.T) {
	env, rec, out := newTestEnv()
	b := NewButton(env, ButtonOptions{
		Options: Options{Group: Channel(1), Key: "pfl", MIDI: Address{0x90, 0x34}},
		Off:     2,
	})
	b.Connect()
	rec.Engine.SetValue("[Channel1]", "pfl", 0.3)
	assert.Equal(t, sent{0x90, 0x34, 127}, out.last())
	rec.Engine.SetValue("[Channel1]", "pfl", 0)
	assert.Equal(t, sent{0x90, 0x34, 2}, out.last())
}

func TestHotcueButton(t *testing.T) {
	env, rec, out := newTestEnv()
	b := NewHotcueButton(env, 3, ButtonOptions{Options: Options{Group: Channel(1), MIDI: Address{0x91, 0x29}}})
	b.Connect()

	b.Input(press(127))
	assert.Equal(t, []string{"set [Channel1],hotcue_3_activate=1"}, rec.calls)

	rec.reset()
	b.Input(press(0))
	b.Shift()
	b.Input(press(127))
	assert.Equal(t, []string{
		"set [Channel1],hotcue_3_activate=0",
		"set [Channel1],hotcue_3_clear=1",
	}, rec.calls)

	rec.Engine.SetValue("[Channel1]", "hotcue_3_enabled", 1)
	assert.Equal(t, sent{0x91, 0x29, 127}, out.last())
	assert.Equal(t, 1, rec.Connections("[Channel1]", "hotcue_3_enabled"))

	b.Unshift()
	assert.Equal(t, "hotcue_3_activate", b.InKey)
}

func TestHotcueWithoutNumber(t *testing.T) {
	env, _, _ := newTestEnv()
	b := NewHotcueButton(env, 0, ButtonOptions{Options: Options{Group: Channel(1)}})
	assert.Equal(t, "hotcue_0_activate", b.InKey)
}

func TestShiftButtons(t *testing.T) {
	env, rec, _ := newTestEnv()
	play := NewPlayButton(env, ButtonOptions{Options: Options{Group: Channel(2)}})
	sync := NewSyncButton(env, ButtonOptions{Options: Options{Group: Channel(2)}})
	loop := NewLoopToggleButton(env, ButtonOptions{Options: Options{Group: Channel(2)}})

	play.Input(press(127))
	play.Shift()
	play.Input(press(127))
	sync.Shift()
	sync.Input(press(127))
	sync.Input(press(127))
	loop.Input(press(127))
	assert.Equal(t, []string{
		"set [Channel2],play=1",
		"set [Channel2],start_stop=1",
		"set [Channel2],beatsync=1",
		"set [Channel2],beatsync=1",
		"set [Channel2],reloop_exit=1",
	}, rec.calls)
	assert.Equal(t, "play_indicator", play.OutKey)
	assert.Equal(t, "loop_enabled", loop.OutKey)
}

func TestSamplerButton(t *testing.T) {
	env, rec, out := newTestEnv()
	b := NewSamplerButton(env, SamplerOptions{
		ButtonOptions: ButtonOptions{Options: Options{MIDI: Address{0x90, 0x40}}},
		Number:        2,
		Playing:       64,
	})
	b.Connect()
	require.Equal(t, 1, rec.Connections("[Sampler2]", "track_loaded"))
	require.Equal(t, 1, rec.Connections("[Sampler2]", "play"))

	b.Input(press(127))
	rec.Engine.SetValue("[Sampler2]", "track_loaded", 1)
	assert.Equal(t, sent{0x90, 0x40, 127}, out.last())
	b.Input(press(127))
	rec.Engine.SetValue("[Sampler2]", "play", 1)
	assert.Equal(t, sent{0x90, 0x40, 64}, out.last())

	b.Shift()
	b.Input(press(127))
	b.Input(press(127))
	assert.Equal(t, []string{
		"set [Sampler2],LoadSelectedTrack=1",
		"set [Sampler2],cue_gotoandplay=1",
		"set [Sampler2],play=0",
		"set [Sampler2],eject=1",
	}, rec.calls)
	assert.Equal(t, sent{0x90, 0x40, 127}, out.last())
}

func TestPotSoftTakeoverReset(t *testing.T) {
	env, rec, out := newTestEnv()
	p := NewPot(env, PotOptions{Options: Options{Group: EffectUnitGroup(1), Key: "mix", MIDI: Address{0xb0, 0x04}}})
	const g = "[EffectRack1_EffectUnit1]"
	p.Connect()
	assert.False(t, p.FirstValueReceived())

	p.Input(Message{Value: 64})
	p.Input(Message{Value: 70})
	assert.True(t, p.FirstValueReceived())
	assert.Equal(t, []string{
		"takeover " + g + ",mix true",
		"param " + g + ",mix",
		"param " + g + ",mix",
	}, rec.calls)

	rec.reset()
	p.Disconnect()
	assert.False(t, p.FirstValueReceived())
	rec.Engine.Apply(g, "mix", 0.9)
	p.Connect()
	p.Input(Message{Value: 10})
	assert.Equal(t, []string{
		"ignore-next " + g + ",mix",
		"takeover " + g + ",mix true",
		"param " + g + ",mix",
	}, rec.calls)
	assert.InDelta(t, 10.0/127, rec.GetParameter(g, "mix"), 1e-9)

	p.Trigger()
	assert.Empty(t, out.msgs, "pots have no LED")
}

func TestRelativePot(t *testing.T) {
	env, rec, _ := newTestEnv()
	p := NewPot(env, PotOptions{Options: Options{Group: Channel(1), Key: "rate"}, Relative: true})
	rec.Engine.Apply("[Channel1]", "rate", 0.5)
	p.Connect()

	p.Input(Message{Value: 127})
	assert.InDelta(t, 0.5+1.0/128, rec.GetParameter("[Channel1]", "rate"), 1e-9)
	p.Input(Message{Value: 1})
	p.Input(Message{Value: 1})
	assert.InDelta(t, 0.5-1.0/128, rec.GetParameter("[Channel1]", "rate"), 1e-9)
}

func TestScalers(t *testing.T) {
	rel := Relative(0.1)
	assert.InDelta(t, -0.1, rel(1), 1e-9)
	assert.InDelta(t, 0.1, rel(127), 1e-9)
	assert.InDelta(t, -0.3, rel(3), 1e-9)
	assert.InDelta(t, 0.2, rel(126), 1e-9)
	assert.Zero(t, rel(0))
	assert.InDelta(t, 0.1, Relative(-0.1)(1), 1e-9)

	exp := ExpCurve(0, 127, 0, 1, 3)
	assert.Zero(t, exp(0))
	assert.InDelta(t, 1, exp(127), 1e-9)
	assert.Less(t, exp(64), 0.5)

	eq := CenterDetent(4, 3)
	assert.InDelta(t, 0.5, eq(63), 1e-9)
	assert.InDelta(t, 0.5, eq(66), 1e-9)
	assert.Zero(t, eq(0))
	assert.InDelta(t, 1, eq(127), 1e-9)
	assert.Less(t, eq(30), 0.5)
	assert.Greater(t, eq(100), 0.5)

	assert.InDelta(t, 0.5, Linear(100)(50), 1e-9)
}

func TestGroups(t *testing.T) {
	cases := []struct {
		name string
		kind GroupKind
		deck int
		to3  string
	}{
		{"[Channel1]", GroupChannel, 1, "[Channel3]"},
		{"[EqualizerRack1_[Channel2]_Effect1]", GroupEqualizer, 2, "[EqualizerRack1_[Channel3]_Effect1]"},
		{"[QuickEffectRack1_[Channel4]]", GroupQuickEffect, 4, "[QuickEffectRack1_[Channel3]]"},
		{"[EffectRack1_EffectUnit1]", GroupOther, 0, "[EffectRack1_EffectUnit1]"},
		{"[Master]", GroupOther, 0, "[Master]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := ParseGroup(tc.name)
			assert.Equal(t, tc.kind, g.Kind())
			assert.Equal(t, tc.deck, g.Deck())
			assert.Equal(t, tc.name, g.String())
			assert.Equal(t, tc.to3, g.ForDeck(3).String())
		})
	}
	assert.True(t, ParseGroup("").IsZero())
	assert.Equal(t, Channel(2), ParseGroup("[Channel2]"))
}
