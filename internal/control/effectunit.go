package control

import (
	"fmt"
	"math"

	"k2mapper/internal/host"
)

const effectsPerUnit = 3

// DefaultEnableOnChannelSources are the sources an effect unit can be
// enabled on out of the box.
var DefaultEnableOnChannelSources = []string{
	"Channel1", "Channel2", "Channel3", "Channel4",
	"Microphone", "Auxiliary1", "Master", "Headphone",
}

// parameterView is implemented by controls whose binding depends on whether
// the unit shows effect parameters.
type parameterView interface {
	OnParametersShow()
	OnParametersHide()
}

// EffectUnit is the control surface of one effect unit: a dry/wet knob, one
// knob and one enable button per effect, a show parameters button and the
// per-source enable buttons.
type EffectUnit struct {
	*Container
	Number int

	DryWetKnob             *DryWetKnob
	Knobs                  []*EffectUnitKnob
	EnableButtons          []*EffectEnableButton
	ShowParametersButton   *Button
	EnableOnChannelButtons *Container

	env            Env
	group          Group
	showParameters bool
	focusedEffect  int
	conns          []host.Connection
}

// NewEffectUnit builds the controls of unit number. Nothing is connected
// until Init.
func NewEffectUnit(env Env, number int) *EffectUnit {
	u := &EffectUnit{
		Container: NewContainer(env.Log),
		Number:    number,
		env:       env,
		group:     EffectUnitGroup(number),
	}

	u.DryWetKnob = newDryWetKnob(env, u.group)
	u.AddControl("dryWetKnob", u.DryWetKnob)

	knobs := Sequence{}
	buttons := Sequence{}
	for n := 1; n <= effectsPerUnit; n++ {
		k := newEffectUnitKnob(env, u, n)
		u.Knobs = append(u.Knobs, k)
		knobs = append(knobs, Leaf{k})

		b := newEffectEnableButton(env, u, n)
		u.EnableButtons = append(u.EnableButtons, b)
		buttons = append(buttons, Leaf{b})
	}
	u.Add("knobs", knobs)
	u.Add("enableButtons", buttons)

	u.ShowParametersButton = NewButton(env, ButtonOptions{
		Options: Options{Group: u.group, Key: "show_parameters"},
	})
	u.AddControl("showParametersButton", u.ShowParametersButton)

	u.EnableOnChannelButtons = NewContainer(env.Log)
	for _, source := range DefaultEnableOnChannelSources {
		u.AddEnableOnChannelButton(source, Address{})
	}
	u.AddContainer("enableOnChannelButtons", u.EnableOnChannelButtons)
	return u
}

func (u *EffectUnit) Group() Group {
	return u.group
}

func (u *EffectUnit) ParametersShown() bool {
	return u.showParameters
}

func (u *EffectUnit) FocusedEffect() int {
	return u.focusedEffect
}

// AddEnableOnChannelButton registers, or re-addresses, the button enabling
// the unit on source (e.g. "Channel1", "Master").
func (u *EffectUnit) AddEnableOnChannelButton(source string, midi Address) *Button {
	b := NewButton(u.env, ButtonOptions{
		Options: Options{
			Group: u.group,
			Key:   fmt.Sprintf("group_[%s]_enable", source),
			MIDI:  midi,
		},
	})
	u.EnableOnChannelButtons.AddControl(source, b)
	return b
}

// EnableOnChannelButton returns the button registered for source.
func (u *EffectUnit) EnableOnChannelButton(source string) (*Button, bool) {
	comp, ok := u.EnableOnChannelButtons.Control(source)
	if !ok {
		return nil, false
	}
	b, ok := comp.(*Button)
	return b, ok
}

// Init turns on focus display and follows show_parameters and focused_effect.
func (u *EffectUnit) Init() {
	e, g := u.env.Engine, u.group.String()
	e.SetValue(g, "show_focus", 1)

	u.release()
	u.showParameters = e.GetValue(g, "show_parameters") > 0
	u.focusedEffect = focusIndex(e.GetValue(g, "focused_effect"))
	u.conns = append(u.conns,
		e.MakeConnection(g, "show_parameters", u.onShowParametersChange),
		e.MakeConnection(g, "focused_effect", u.onFocusChange),
	)
	u.applyView()
}

// Shutdown drops the unit's own subscriptions and disconnects its controls.
func (u *EffectUnit) Shutdown() {
	u.release()
	u.DisconnectControls()
}

func (u *EffectUnit) release() {
	for _, c := range u.conns {
		c.Disconnect()
	}
	u.conns = nil
}

func (u *EffectUnit) onShowParametersChange(value float64, _, _ string) {
	shown := value > 0
	if shown == u.showParameters {
		return
	}
	u.showParameters = shown
	u.applyView()
}

func (u *EffectUnit) applyView() {
	u.ForEachControl(func(comp Component) {
		v, ok := comp.(parameterView)
		if !ok {
			return
		}
		if u.showParameters {
			v.OnParametersShow()
		} else {
			v.OnParametersHide()
		}
	}, true)
}

func (u *EffectUnit) onFocusChange(value float64, _, _ string) {
	focus := focusIndex(value)
	if focus == u.focusedEffect {
		return
	}
	u.focusedEffect = focus
	for _, k := range u.Knobs {
		k.apply()
	}
}

func focusIndex(v float64) int {
	return int(math.Round(v))
}

// DryWetKnob controls the unit mix, and the superknob when shifted.
type DryWetKnob struct {
	*Pot
}

func newDryWetKnob(env Env, group Group) *DryWetKnob {
	k := &DryWetKnob{Pot: NewPot(env, PotOptions{Options: Options{Group: group, Key: "mix"}})}
	k.self = k
	return k
}

func (k *DryWetKnob) Shift() {
	k.Control.shifted = true
	k.swap("super1")
}

func (k *DryWetKnob) Unshift() {
	k.Control.shifted = false
	k.swap("mix")
}

// swap always runs a full disconnect/connect so that soft takeover starts
// over on the new key.
func (k *DryWetKnob) swap(key string) {
	if k.InKey == key {
		return
	}
	live := k.live
	k.Disconnect()
	k.InKey, k.OutKey = key, key
	if live {
		k.Connect()
	}
}

// EffectUnitKnob controls the metaknob of its effect, or parameter Number of
// the focused effect while parameters are shown.
type EffectUnitKnob struct {
	*Pot
	Number int
	unit   *EffectUnit
}

func newEffectUnitKnob(env Env, u *EffectUnit, n int) *EffectUnitKnob {
	k := &EffectUnitKnob{Pot: NewPot(env, PotOptions{}), Number: n, unit: u}
	k.self = k
	k.Group, k.InKey, k.OutKey = k.target()
	return k
}

func (k *EffectUnitKnob) target() (Group, string, string) {
	u := k.unit
	if u.showParameters && u.focusedEffect > 0 {
		key := fmt.Sprintf("parameter%d", k.Number)
		return EffectGroup(u.Number, u.focusedEffect), key, key
	}
	return EffectGroup(u.Number, k.Number), "meta", "meta"
}

func (k *EffectUnitKnob) apply() {
	g, in, out := k.target()
	if g == k.Group && in == k.InKey && out == k.OutKey {
		return
	}
	k.rebind(func() { k.Group, k.InKey, k.OutKey = g, in, out })
}

func (k *EffectUnitKnob) OnParametersShow() { k.apply() }
func (k *EffectUnitKnob) OnParametersHide() { k.apply() }

// EnableAction is what a press of an effect enable button does.
type EnableAction int

const (
	ActionToggleEnable EnableAction = iota
	ActionNextEffect
	ActionToggleFocus
)

func (a EnableAction) String() string {
	switch a {
	case ActionToggleEnable:
		return "toggle enable"
	case ActionNextEffect:
		return "next effect"
	case ActionToggleFocus:
		return "toggle focus"
	default:
		return "unknown"
	}
}

// EffectEnableButton enables its effect. Shifted it loads the next effect,
// or focuses its effect while parameters are shown.
type EffectEnableButton struct {
	*Button
	Number int
	unit   *EffectUnit
}

func newEffectEnableButton(env Env, u *EffectUnit, n int) *EffectEnableButton {
	b := &EffectEnableButton{Button: newButton(env, ButtonOptions{}), Number: n, unit: u}
	b.self = b
	b.Group, b.InKey, b.OutKey = b.target()
	return b
}

func (b *EffectEnableButton) effectGroup() Group {
	return EffectGroup(b.unit.Number, b.Number)
}

func (b *EffectEnableButton) target() (Group, string, string) {
	if b.Control.shifted && b.unit.showParameters {
		return b.unit.group, "", "focused_effect"
	}
	return b.effectGroup(), "enabled", "enabled"
}

func (b *EffectEnableButton) apply() {
	g, in, out := b.target()
	if g == b.Group && in == b.InKey && out == b.OutKey {
		return
	}
	b.rebind(func() { b.Group, b.InKey, b.OutKey = g, in, out })
}

// Action returns what a press does in the current state.
func (b *EffectEnableButton) Action() EnableAction {
	switch {
	case !b.Control.shifted:
		return ActionToggleEnable
	case b.unit.showParameters:
		return ActionToggleFocus
	default:
		return ActionNextEffect
	}
}

func (b *EffectEnableButton) Input(msg Message) {
	if !b.IsPress(msg) {
		return
	}
	e := b.env.Engine
	switch b.Action() {
	case ActionToggleEnable:
		g := b.effectGroup().String()
		e.SetValue(g, "enabled", boolValue(e.GetValue(g, "enabled") <= 0))
	case ActionNextEffect:
		e.SetValue(b.effectGroup().String(), "next_effect", 1)
	case ActionToggleFocus:
		g := b.unit.group.String()
		if focusIndex(e.GetValue(g, "focused_effect")) == b.Number {
			e.SetValue(g, "focused_effect", 0)
		} else {
			e.SetValue(g, "focused_effect", float64(b.Number))
		}
	}
}

func (b *EffectEnableButton) Output(value float64, _, key string) {
	if key == "focused_effect" {
		b.Light(focusIndex(value) == b.Number)
		return
	}
	b.Light(value > 0)
}

func (b *EffectEnableButton) Shift() {
	b.Control.shifted = true
	b.apply()
}

func (b *EffectEnableButton) Unshift() {
	b.Control.shifted = false
	b.apply()
}

func (b *EffectEnableButton) OnParametersShow() { b.apply() }
func (b *EffectEnableButton) OnParametersHide() { b.apply() }
