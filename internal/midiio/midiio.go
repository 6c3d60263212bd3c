// Package midiio connects the mapping to a hardware controller through gomidi.
package midiio

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"k2mapper/internal/host"
	"k2mapper/internal/logger"
)

// ErrPortNotFound is returned when no port matches the configured name.
var ErrPortNotFound = errors.New("midi port not found")

// Port is an opened controller: one input and one output.
type Port struct {
	log  logger.Logger
	in   drivers.In
	out  drivers.Out
	send func(midi.Message) error
	stop func()
}

var _ host.MIDISender = (*Port)(nil)

// Open finds the input and output ports by name. The driver must be
// registered by the caller (blank import of a gomidi driver).
func Open(log logger.Logger, inName, outName string) (*Port, error) {
	in, err := midi.FindInPort(inName)
	if err != nil {
		return nil, fmt.Errorf("%w: in %q: %v", ErrPortNotFound, inName, err)
	}
	out, err := midi.FindOutPort(outName)
	if err != nil {
		return nil, fmt.Errorf("%w: out %q: %v", ErrPortNotFound, outName, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("midi. open %q: %w", out.String(), err)
	}
	log.Module("midi").Infof("in: %s, out: %s", in.String(), out.String())
	return &Port{log: log, in: in, out: out, send: send}, nil
}

// Ports lists the names of the available ports.
func Ports() (ins, outs []string) {
	for _, in := range midi.GetInPorts() {
		ins = append(ins, in.String())
	}
	for _, out := range midi.GetOutPorts() {
		outs = append(outs, out.String())
	}
	return ins, outs
}

// SendShortMsg writes a 3-byte message. Failures are logged.
func (p *Port) SendShortMsg(status, data1, data2 byte) {
	if err := p.send(midi.Message{status, data1, data2}); err != nil {
		p.log.Module("midi").Errorf("send %#02x %#02x %#02x: %v", status, data1, data2, err)
	}
}

// Listen delivers every channel voice message to h. h runs on the driver's
// goroutine.
func (p *Port) Listen(h func(host.ShortMessage)) error {
	stop, err := midi.ListenTo(p.in, func(msg midi.Message, _ int32) {
		m, ok := Decode(msg)
		if !ok {
			p.log.Module("midi").Debugf("skip %v", msg)
			return
		}
		h(m)
	})
	if err != nil {
		return fmt.Errorf("midi. listen %q: %w", p.in.String(), err)
	}
	p.stop = stop
	return nil
}

// Stop ends listening and closes the driver.
func (p *Port) Stop() {
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
	midi.CloseDriver()
}

// Decode converts a 3-byte channel voice message. System messages and
// 2-byte messages are rejected.
func Decode(msg midi.Message) (host.ShortMessage, bool) {
	b := msg.Bytes()
	if len(b) != 3 || b[0] < 0x80 || b[0] >= 0xf0 {
		return host.ShortMessage{}, false
	}
	return host.ShortMessage{Status: b[0], Data1: b[1], Data2: b[2]}, true
}
