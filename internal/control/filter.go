package control

// FilterKind selects the side of a deck's filter effect.
type FilterKind int

const (
	HighPass FilterKind = iota
	LowPass
)

// key and neutral position of the filter effect parameter.
func (k FilterKind) parameter() (string, float64) {
	if k == LowPass {
		return "parameter1", 1
	}
	return "parameter3", 0
}

// Filter is one side of the filter effect in the first slot of an effect
// unit, switched in and out with a button. The knob position is kept while
// the filter is out and written when it comes in; going out writes the
// neutral position.
type Filter struct {
	Kind   FilterKind
	Button *FilterButton
	Knob   *FilterKnob

	env     Env
	group   Group
	key     string
	neutral float64
	value   float64
	enabled bool
}

// NewFilter builds the button and knob of a filter on effect unit unit.
func NewFilter(env Env, kind FilterKind, unit int, button, knob Address) *Filter {
	key, neutral := kind.parameter()
	f := &Filter{
		Kind:    kind,
		env:     env,
		group:   EffectGroup(unit, 1),
		key:     key,
		neutral: neutral,
		value:   neutral,
	}

	b := &FilterButton{
		Button: newButton(env, ButtonOptions{Options: Options{MIDI: button}, Press: PressOnNoteOn}),
		filter: f,
	}
	b.self = b
	f.Button = b

	k := &FilterKnob{
		Control: newControl(env, Options{MIDI: knob, InScale: ExpCurve(0, 127, 0, 1, 1)}),
		filter:  f,
	}
	k.self = k
	f.Knob = k
	return f
}

func (f *Filter) Enabled() bool {
	return f.enabled
}

// Toggle switches the filter in or out and updates the button LED.
func (f *Filter) Toggle() {
	f.enabled = !f.enabled
	if f.enabled {
		f.env.Engine.SetParameter(f.group.String(), f.key, f.value)
	} else {
		f.env.Engine.SetParameter(f.group.String(), f.key, f.neutral)
	}
	f.Button.Light(f.enabled)
}

func (f *Filter) set(value float64) {
	f.value = value
	if f.enabled {
		f.env.Engine.SetParameter(f.group.String(), f.key, value)
	}
}

// FilterButton switches its filter on every press.
type FilterButton struct {
	*Button
	filter *Filter
}

func (b *FilterButton) Input(msg Message) {
	if b.IsPress(msg) {
		b.filter.Toggle()
	}
}

// Trigger lights the LED from the filter state, there is no parameter for it.
func (b *FilterButton) Trigger() {
	b.Light(b.filter.enabled)
}

// FilterKnob sets the filter position.
type FilterKnob struct {
	*Control
	filter *Filter
}

func (k *FilterKnob) Input(msg Message) {
	k.filter.set(k.scaler().InValueScale(float64(msg.Value)))
}
