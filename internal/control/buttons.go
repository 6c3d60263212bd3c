package control

import "fmt"

// buttonMode is one side of a shiftable button.
type buttonMode struct {
	in    string
	out   string
	hold  bool
	pulse bool
}

// ShiftButton binds different keys while the surface is shifted.
type ShiftButton struct {
	*Button
	normal buttonMode
	alt    buttonMode
}

func newShiftButton(env Env, opts ButtonOptions, normal, alt buttonMode) *ShiftButton {
	b := &ShiftButton{Button: newButton(env, opts), normal: normal, alt: alt}
	b.self = b
	b.apply(normal)
	return b
}

func (b *ShiftButton) apply(m buttonMode) {
	b.InKey, b.OutKey = m.in, m.out
	b.Hold, b.Pulse = m.hold, m.pulse
}

func (b *ShiftButton) Shift() {
	b.Control.shifted = true
	b.rebind(func() { b.apply(b.alt) })
}

func (b *ShiftButton) Unshift() {
	b.Control.shifted = false
	b.rebind(func() { b.apply(b.normal) })
}

// NewPlayButton toggles play; shifted it jumps to the start and stops.
func NewPlayButton(env Env, opts ButtonOptions) *ShiftButton {
	return newShiftButton(env, opts,
		buttonMode{in: "play", out: "play_indicator"},
		buttonMode{in: "start_stop", out: "play_indicator", pulse: true},
	)
}

// NewCueButton is held for the default cue; shifted it goes to the cue and stops.
func NewCueButton(env Env, opts ButtonOptions) *ShiftButton {
	return newShiftButton(env, opts,
		buttonMode{in: "cue_default", out: "cue_indicator", hold: true},
		buttonMode{in: "cue_gotoandstop", out: "cue_indicator", pulse: true},
	)
}

// NewSyncButton toggles sync lock; shifted it syncs once.
func NewSyncButton(env Env, opts ButtonOptions) *ShiftButton {
	return newShiftButton(env, opts,
		buttonMode{in: "sync_enabled", out: "sync_enabled"},
		buttonMode{in: "beatsync", out: "sync_enabled", pulse: true},
	)
}

// NewLoopToggleButton reloops or exits the loop.
func NewLoopToggleButton(env Env, opts ButtonOptions) *Button {
	opts.InKey, opts.OutKey = "reloop_exit", "loop_enabled"
	opts.Pulse = true
	return NewButton(env, opts)
}

// NewHotcueButton activates hotcue number while held and clears it when
// shifted. A missing number is logged and yields a hotcue_0 binding.
func NewHotcueButton(env Env, number int, opts ButtonOptions) *ShiftButton {
	b := newShiftButton(env, opts,
		buttonMode{in: fmt.Sprintf("hotcue_%d_activate", number), out: fmt.Sprintf("hotcue_%d_enabled", number), hold: true},
		buttonMode{in: fmt.Sprintf("hotcue_%d_clear", number), out: fmt.Sprintf("hotcue_%d_enabled", number), pulse: true},
	)
	if number <= 0 {
		b.log().Errorf("hotcue button %v: missing hotcue number", opts.MIDI)
	}
	return b
}

// SamplerOptions configures a SamplerButton.
type SamplerOptions struct {
	ButtonOptions
	Number int
	// Playing is the LED value while the sampler plays; zero lights with On.
	Playing float64
}

// SamplerButton loads and plays a sampler. Shifted it stops a playing
// sampler or ejects a stopped one.
type SamplerButton struct {
	*Button
	Number  int
	Playing float64
}

func NewSamplerButton(env Env, opts SamplerOptions) *SamplerButton {
	opts.Group = SamplerGroup(opts.Number)
	opts.InKey, opts.OutKey = "", "track_loaded"
	b := &SamplerButton{Button: newButton(env, opts.ButtonOptions), Number: opts.Number, Playing: opts.Playing}
	b.self = b
	if opts.Number <= 0 {
		b.log().Errorf("sampler button %v: missing sampler number", opts.MIDI)
	}
	return b
}

func (b *SamplerButton) Shift() {
	b.Control.shifted = true
}

func (b *SamplerButton) Unshift() {
	b.Control.shifted = false
}

func (b *SamplerButton) Input(msg Message) {
	if !b.IsPress(msg) {
		return
	}
	e, g := b.env.Engine, b.Group.String()
	loaded := e.GetValue(g, "track_loaded") > 0
	playing := e.GetValue(g, "play") > 0
	switch {
	case b.Control.shifted && playing:
		e.SetValue(g, "play", 0)
	case b.Control.shifted:
		e.SetValue(g, "eject", 1)
	case !loaded:
		e.SetValue(g, "LoadSelectedTrack", 1)
	default:
		e.SetValue(g, "cue_gotoandplay", 1)
	}
}

// Connect subscribes to the load state and, with a playing color, to play.
func (b *SamplerButton) Connect() {
	b.Control.Connect()
	if b.Playing != 0 {
		b.subscribe(b.Group, "play")
	}
}

func (b *SamplerButton) Output(_ float64, _, _ string) {
	e, g := b.env.Engine, b.Group.String()
	switch {
	case e.GetValue(g, "track_loaded") <= 0:
		b.Send(b.Off)
	case b.Playing != 0 && e.GetValue(g, "play") > 0:
		b.Send(b.Playing)
	default:
		b.Send(b.On)
	}
}

// ResetButton writes a fixed normalized value on every press, e.g. the gain
// back to unity. It has no LED of its own.
type ResetButton struct {
	*Button
	Value float64
}

func NewResetButton(env Env, value float64, opts ButtonOptions) *ResetButton {
	if opts.InKey == "" {
		opts.InKey = opts.Key
	}
	opts.Key, opts.OutKey = "", ""
	b := &ResetButton{Button: newButton(env, opts), Value: value}
	b.self = b
	return b
}

func (b *ResetButton) Input(msg Message) {
	if !b.bound() || !b.IsPress(msg) {
		return
	}
	b.env.Engine.SetParameter(b.Group.String(), b.InKey, b.Value)
}
