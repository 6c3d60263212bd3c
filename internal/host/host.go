// Package host describes the collaborators a controller mapping talks to: the
// parameter engine of the mixing application, the MIDI output of the device and
// the timer service.
package host

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusNoteOff       = 0x80
	StatusNoteOn        = 0x90
	StatusControlChange = 0xb0
	StatusCodeMask      = 0xf0
	ChannelMask         = 0x0f
)

// Callback receives the new value of a parameter together with its address.
type Callback func(value float64, group, key string)

// Connection is the handle of one parameter subscription.
type Connection interface {
	ID() uuid.UUID
	// Disconnect is safe to call more than once.
	Disconnect()
	// Trigger invokes the callback once with the current value.
	Trigger()
}

// Engine is the parameter engine of the host application. Values are in the
// parameter's own range, parameters are normalized to 0..1.
type Engine interface {
	GetValue(group, key string) float64
	SetValue(group, key string, value float64)
	GetParameter(group, key string) float64
	SetParameter(group, key string, value float64)
	MakeConnection(group, key string, cb Callback) Connection
	Trigger(group, key string)
	SoftTakeover(group, key string, enable bool)
	SoftTakeoverIgnoreNextValue(group, key string)
}

// MIDISender transmits a 3-byte short message to the hardware.
type MIDISender interface {
	SendShortMsg(status, data1, data2 byte)
}

// Timers schedules callbacks on the engine thread. BeginTimer returns 0 when
// the timer could not be registered.
type Timers interface {
	BeginTimer(interval time.Duration, cb func(), oneShot bool) int
	StopTimer(id int)
}

// MessageKind groups status codes that address the same physical control.
type MessageKind byte

const (
	KindOther MessageKind = iota
	KindNote
	KindControlChange
)

// ShortMessage is a raw 3-byte MIDI message.
type ShortMessage struct {
	Status byte
	Data1  byte
	Data2  byte
}

// Channel returns the channel nibble of the status byte.
func (m ShortMessage) Channel() byte {
	return m.Status & ChannelMask
}

// Kind folds note-on and note-off into KindNote.
func (m ShortMessage) Kind() MessageKind {
	return KindOf(m.Status)
}

// KindOf classifies a status byte.
func KindOf(status byte) MessageKind {
	switch status & StatusCodeMask {
	case StatusNoteOn, StatusNoteOff:
		return KindNote
	case StatusControlChange:
		return KindControlChange
	default:
		return KindOther
	}
}
