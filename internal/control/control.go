// Package control binds physical MIDI controls to host parameters.
//
// A Control translates incoming MIDI values into parameter writes and
// subscribes to a parameter to drive the LED of the control. Controls are
// grouped in Containers, which shift, re-bind and reconnect whole surfaces at
// once. Deck and EffectUnit are containers with their own layer logic.
//
// Nothing in this package is safe for concurrent use; all calls must come from
// the goroutine that dispatches host events.
package control

import (
	"math"

	"k2mapper/internal/host"
	"k2mapper/internal/logger"
)

const defaultMax = 127

// Env carries the collaborators every control talks to.
type Env struct {
	Engine host.Engine
	MIDI   host.MIDISender
	Timers host.Timers
	Log    logger.Logger
}

// Address is the MIDI identity of a control: the status byte it sends and its
// note or control number.
type Address struct {
	Status byte
	Number byte
}

// Valid reports whether a status byte has been set.
func (a Address) Valid() bool {
	return a.Status&0x80 != 0
}

// Message is one incoming MIDI message routed to a control.
type Message struct {
	Channel byte
	Control byte
	Value   byte
	Status  byte
	Group   string
}

// MessageFrom converts a raw short message.
func MessageFrom(m host.ShortMessage, group string) Message {
	return Message{
		Channel: m.Channel(),
		Control: m.Data1,
		Value:   m.Data2,
		Status:  m.Status,
		Group:   group,
	}
}

// Binding is what a control is bound to.
type Binding struct {
	Group  Group
	InKey  string
	OutKey string
	MIDI   Address
}

// ShiftTarget selects where a shifted copy of the LED output goes.
type ShiftTarget int

const (
	ShiftNone ShiftTarget = iota
	ShiftChannel
	ShiftControl
)

// Component is a control a Container can hold.
type Component interface {
	Base() *Control
	Input(msg Message)
	Output(value float64, group, key string)
	Connect()
	Disconnect()
	Trigger()
}

// Scalable converts values in both directions.
type Scalable interface {
	InValueScale(value float64) float64
	OutValueScale(value float64) float64
}

// PressDetectable decides whether a message is a press.
type PressDetectable interface {
	IsPress(msg Message) bool
}

// ShiftAware controls change behavior while the surface is shifted.
type ShiftAware interface {
	Shift()
	Unshift()
}

// SoftTakeover controls gate their writes until the physical position is known.
type SoftTakeover interface {
	FirstValueReceived() bool
}

// Options configures a Control.
type Options struct {
	Group Group
	// Key sets InKey and OutKey when they are empty.
	Key    string
	InKey  string
	OutKey string
	MIDI   Address
	// Max is the largest hardware value, 127 when zero.
	Max      float64
	InScale  Scaler
	OutScale Scaler
	// ShiftedSend mirrors every LED write at an offset address.
	ShiftedSend ShiftTarget
	ShiftOffset byte
}

// Control is the base of every control. Variants embed it and register
// themselves as self so that connections call the variant's Output.
type Control struct {
	Binding
	Max         float64
	ShiftedSend ShiftTarget
	ShiftOffset byte

	env      Env
	inScale  Scaler
	outScale Scaler
	shifted  bool
	// live is set between Connect and Disconnect, also for controls that
	// have nothing to subscribe to.
	live  bool
	conns []host.Connection
	self  Component
}

func newControl(env Env, opts Options) *Control {
	c := &Control{
		Binding: Binding{
			Group:  opts.Group,
			InKey:  opts.InKey,
			OutKey: opts.OutKey,
			MIDI:   opts.MIDI,
		},
		Max:         opts.Max,
		ShiftedSend: opts.ShiftedSend,
		ShiftOffset: opts.ShiftOffset,
		env:         env,
		inScale:     opts.InScale,
		outScale:    opts.OutScale,
	}
	if c.Max == 0 {
		c.Max = defaultMax
	}
	if c.InKey == "" {
		c.InKey = opts.Key
	}
	if c.OutKey == "" {
		c.OutKey = opts.Key
	}
	return c
}

// NewControl returns a plain control: linear input written with SetValue,
// linear LED output.
func NewControl(env Env, opts Options) *Control {
	c := newControl(env, opts)
	c.self = c
	return c
}

func (c *Control) Base() *Control {
	return c
}

// Shifted reports whether the surface holding the control is shifted.
func (c *Control) Shifted() bool {
	return c.shifted
}

// Connected reports whether the control is between Connect and Disconnect.
func (c *Control) Connected() bool {
	return c.live
}

// Subscriptions returns the number of output subscriptions held.
func (c *Control) Subscriptions() int {
	return len(c.conns)
}

func (c *Control) Env() Env {
	return c.env
}

func (c *Control) log() *logger.Log {
	if c.env.Log == nil {
		return logger.NewDiscard()
	}
	return c.env.Log.Module("control")
}

// rebind swaps the binding of a live control: disconnect, mutate, connect,
// trigger. A control that is not connected is only mutated.
func (c *Control) rebind(mutate func()) {
	if !c.live {
		mutate()
		return
	}
	c.self.Disconnect()
	mutate()
	c.self.Connect()
	c.self.Trigger()
}

func (c *Control) InValueScale(v float64) float64 {
	if c.inScale != nil {
		return c.inScale(v)
	}
	return v / c.Max
}

func (c *Control) OutValueScale(v float64) float64 {
	if c.outScale != nil {
		return c.outScale(v)
	}
	return v * c.Max
}

func (c *Control) scaler() Scalable {
	if s, ok := c.self.(Scalable); ok {
		return s
	}
	return c
}

func (c *Control) bound() bool {
	return !c.Group.IsZero() && c.InKey != ""
}

// Input writes the scaled value to the input parameter. Controls without an
// input binding ignore input.
func (c *Control) Input(msg Message) {
	if !c.bound() {
		return
	}
	c.env.Engine.SetValue(c.Group.String(), c.InKey, c.scaler().InValueScale(float64(msg.Value)))
}

// Output sends the scaled host value to the LED.
func (c *Control) Output(value float64, _, _ string) {
	c.Send(c.scaler().OutValueScale(value))
}

// Send writes value to the control's address, and to the shifted address
// when shifted send is on.
func (c *Control) Send(value float64) {
	if !c.MIDI.Valid() || c.env.MIDI == nil {
		return
	}
	data := toData(value)
	c.env.MIDI.SendShortMsg(c.MIDI.Status, c.MIDI.Number, data)
	switch c.ShiftedSend {
	case ShiftChannel:
		c.env.MIDI.SendShortMsg(c.MIDI.Status+c.ShiftOffset, c.MIDI.Number, data)
	case ShiftControl:
		c.env.MIDI.SendShortMsg(c.MIDI.Status, c.MIDI.Number+c.ShiftOffset, data)
	}
}

// Connect subscribes Output to the output parameter. Controls without group
// or output key stay unconnected.
func (c *Control) Connect() {
	c.release()
	c.live = true
	c.subscribe(c.Group, c.OutKey)
}

func (c *Control) subscribe(group Group, key string) {
	if group.IsZero() || key == "" {
		return
	}
	c.conns = append(c.conns, c.env.Engine.MakeConnection(group.String(), key, c.self.Output))
}

// Disconnect drops all subscriptions. It is safe on an unconnected control.
func (c *Control) Disconnect() {
	c.release()
	c.live = false
}

func (c *Control) release() {
	for _, conn := range c.conns {
		conn.Disconnect()
	}
	c.conns = nil
}

// Trigger pushes the current parameter values through Output.
func (c *Control) Trigger() {
	for _, conn := range c.conns {
		conn.Trigger()
	}
}

func toData(v float64) byte {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 127:
		return 127
	}
	return byte(v)
}
