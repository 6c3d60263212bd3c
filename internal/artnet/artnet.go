// Package artnet mirrors host parameters onto DMX channels over Art-Net, so
// that stage lighting follows the mixer.
package artnet

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/Haba1234/go-artnet"
	"k2mapper/internal/host"
	"k2mapper/internal/logger"
)

const sendQueueDepth = 100

// ArtNet is transport for the ArtNet protocol (DMX over UDP/IP).
type ArtNet struct {
	logger      logger.Logger
	sender      *artnet.Controller
	state       *State
	bindings    []Binding
	conns       []host.Connection
	sendTrigger chan UniverseStateMap
	ctx         context.Context
}

// Controller is a convenience interface to use within this application.
type Controller interface {
	SetDMXChannelValue(value ChannelValue)
	SetDMXChannelValues(values []ChannelValue)
	Connect(e host.Engine)
	Disconnect()
	Start(ctx context.Context) error
	Stop()
}

var _ Controller = (*ArtNet)(nil)

// NewController finds the art-net interface inside network and prepares a
// sender. Nothing is sent before Start.
func NewController(log logger.Logger, network string, fps int, bindings []Binding) (*ArtNet, error) {
	ip, err := FindArtNetIP(network)
	if err != nil {
		return nil, fmt.Errorf("failed to find the art-net IP: %w", err)
	}

	if len(ip) == 0 {
		return nil, errors.New("failed to find the art-net IP: No interface found")
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hostname: %w", err)
	}

	hostname = strings.ToLower(strings.Split(hostname, ".")[0])
	log.Module("art-net").Infof("Using ArtNet IP %s and hostname %s", ip.String(), hostname)

	if fps <= 0 {
		fps = 1
	}
	senderLogger := artnet.NewDefaultLogger(log.GetLevel())

	control := newArtNet(log, bindings)
	control.sender = artnet.NewController(hostname, ip, senderLogger, artnet.MaxFPS(fps))
	return control, nil
}

func newArtNet(log logger.Logger, bindings []Binding) *ArtNet {
	return &ArtNet{
		logger:      log,
		state:       NewState(),
		bindings:    append([]Binding(nil), bindings...),
		sendTrigger: make(chan UniverseStateMap, sendQueueDepth),
		ctx:         context.Background(),
	}
}

// Connect subscribes every binding to the engine. It must run on the engine's
// goroutine; the current values are sent right away.
func (c *ArtNet) Connect(e host.Engine) {
	c.Disconnect()
	for _, b := range c.bindings {
		b := b
		conn := e.MakeConnection(b.Group, b.Key, func(_ float64, group, key string) {
			c.SetDMXChannelValue(ChannelValue{b.Universe, b.Channel, toDMX(e.GetParameter(group, key))})
		})
		c.conns = append(c.conns, conn)
		conn.Trigger()
	}
}

func (c *ArtNet) Disconnect() {
	for _, conn := range c.conns {
		conn.Disconnect()
	}
	c.conns = nil
}

// Start the ArtNet.
func (c *ArtNet) Start(ctx context.Context) error {
	if err := c.sender.Start(); err != nil {
		return fmt.Errorf("failed to start Controller: %w", err)
	}

	c.ctx = ctx
	go c.sendBackground()
	go c.debugDevices()
	return nil
}

// Stop the ArtNet.
func (c *ArtNet) Stop() {
	c.sender.Stop()
}

func (c *ArtNet) SetDMXChannelValue(value ChannelValue) {
	c.state.SetChannel(value.Universe, value.Channel, value.Value)
	c.triggerSend()
}

func (c *ArtNet) SetDMXChannelValues(values []ChannelValue) {
	c.state.SetChannelValues(values)
	c.triggerSend()
}

// triggerSend queues a snapshot. A full queue drops it, the next write
// carries the whole state anyway.
func (c *ArtNet) triggerSend() {
	select {
	case c.sendTrigger <- c.state.Get():
	default:
		c.logger.Module("art-net").Debug("DMX. Очередь отправки заполнена")
	}
}

func (c *ArtNet) sendBackground() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.sendTrigger:
			for u, dmx := range data {
				// u - адрес.
				// dmx - массив данных до 512 байт.
				c.logger.Module("art-net").Debugf("DMX. Отправка в контроллер по адресу %v", u)
				c.sender.SendDMXToAddress(dmx, universeToAddress(u))
			}
		}
	}
}

// toDMX scales a normalized parameter to 0..255.
func toDMX(parameter float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, parameter)) * 255))
}

// universeToAddress converts a dmx universe to art-net address
// universe: старший байт - Net, младший байт - SubUni.
func universeToAddress(universe uint16) artnet.Address {
	v := make([]uint8, 2)
	binary.BigEndian.PutUint16(v, universe)

	return artnet.Address{
		Net:    v[0],
		SubUni: v[1],
	}
}

// NodeToString returns a string representation of the given Node.
func NodeToString(n *artnet.ControlledNode) (string, NodeTopic) {
	var inputs, outputs, outStr []string
	for _, p := range n.Node.InputPorts {
		inputs = append(inputs, fmt.Sprintf("%s: %s", p.Address.String(), p.Type.String()))
	}

	for _, p := range n.Node.OutputPorts {
		outputs = append(outputs, fmt.Sprintf("%s: %s", p.Address.String(), p.Type.String()))
		outStr = append(outStr, p.Address.String())
	}

	return fmt.Sprintf(
			"IP=%s name=%q type=%q manufacturer=%q desc=%q inputs=%q outputs=%q",
			n.UDPAddress.String(), n.Node.Name, n.Node.Type,
			n.Node.Manufacturer, n.Node.Description,
			strings.Join(inputs, "; "), strings.Join(outputs, "; "),
		), NodeTopic{
			Name:   n.Node.Name,
			Output: outStr,
		}
}

func (c *ArtNet) debugDevices() {
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-t.C:
			nodes := c.sender.Nodes
			c.logger.Module("art-net").Debugf("Currently %d devices are registered", len(nodes))
			for _, n := range nodes {
				desc, topic := NodeToString(n)
				c.logger.Module("art-net").Debugf("%s outputs %v: %s", topic.Name, topic.Output, desc)
			}
		}
	}
}
