package control

import "k2mapper/internal/host"

// PressPolicy decides what counts as a press.
type PressPolicy int

const (
	// PressOnValue: one message type, value > 0 is a press and 0 a release.
	PressOnValue PressPolicy = iota
	// PressOnNoteOn: note-on is a press, note-off a release.
	PressOnNoteOn
)

// ButtonOptions configures a Button.
type ButtonOptions struct {
	Options
	// Hold writes every message through: 1 while pressed, 0 on release.
	Hold bool
	// Pulse writes 1 on every press instead of toggling.
	Pulse bool
	Press PressPolicy
	// On and Off are the LED values; On defaults to Max.
	On  float64
	Off float64
}

// Button toggles its parameter on press and lights when the output parameter
// is above zero.
type Button struct {
	*Control
	Hold  bool
	Pulse bool
	Press PressPolicy
	On    float64
	Off   float64

	// held is the parameter a hold press wrote 1 to. The release goes there
	// even when shift or a deck switch re-bound the button in between.
	held *heldKey
}

type heldKey struct {
	group string
	key   string
}

func newButton(env Env, opts ButtonOptions) *Button {
	b := &Button{
		Control: newControl(env, opts.Options),
		Hold:    opts.Hold,
		Pulse:   opts.Pulse,
		Press:   opts.Press,
		On:      opts.On,
		Off:     opts.Off,
	}
	if b.On == 0 {
		b.On = b.Max
	}
	return b
}

// NewButton returns a toggle, trigger or hold button.
func NewButton(env Env, opts ButtonOptions) *Button {
	b := newButton(env, opts)
	b.self = b
	return b
}

func (b *Button) IsPress(msg Message) bool {
	if b.Press == PressOnNoteOn {
		return msg.Status&host.StatusCodeMask == host.StatusNoteOn && msg.Value > 0
	}
	return msg.Value > 0
}

func (b *Button) Input(msg Message) {
	pressed := b.IsPress(msg)
	if !pressed && b.held != nil {
		h := b.held
		b.held = nil
		b.env.Engine.SetValue(h.group, h.key, 0)
		return
	}
	if !b.bound() {
		return
	}
	if b.Hold {
		if pressed {
			b.held = &heldKey{group: b.Group.String(), key: b.InKey}
		}
		b.write(b.InKey, boolValue(pressed))
		return
	}
	if !pressed {
		return
	}
	if b.Pulse {
		b.write(b.InKey, 1)
		return
	}
	b.toggle(b.InKey)
}

// Held reports whether a hold press is waiting for its release.
func (b *Button) Held() bool {
	return b.held != nil
}

func (b *Button) write(key string, v float64) {
	b.env.Engine.SetValue(b.Group.String(), key, v)
}

func (b *Button) toggle(key string) {
	g := b.Group.String()
	b.env.Engine.SetValue(g, key, boolValue(b.env.Engine.GetValue(g, key) <= 0))
}

func (b *Button) Output(value float64, _, _ string) {
	b.Light(value > 0)
}

// Light sends the On or Off value.
func (b *Button) Light(on bool) {
	if on {
		b.Send(b.On)
		return
	}
	b.Send(b.Off)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
