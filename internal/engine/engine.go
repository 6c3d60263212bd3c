// Package engine is an in-memory parameter engine implementing host.Engine.
// It is not safe for concurrent use: everything that touches parameters must
// run on the goroutine executing Run, other goroutines hand work over with Post.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"k2mapper/internal/host"
	"k2mapper/internal/logger"
)

const eventQueueDepth = 256

type paramKey struct {
	group string
	key   string
}

type param struct {
	value    float64
	min      float64
	max      float64
	conns    []*Connection
	takeover *softTakeover
}

func (p *param) toParameter(value float64) float64 {
	if p.max == p.min {
		return 0
	}
	return (value - p.min) / (p.max - p.min)
}

func (p *param) fromParameter(parameter float64) float64 {
	return p.min + parameter*(p.max-p.min)
}

// WatchFunc observes writes made through SetValue and SetParameter.
type WatchFunc func(group, key string, value float64)

// Engine holds the parameters of the host application.
type Engine struct {
	log      logger.Logger
	params   map[paramKey]*param
	watchers []WatchFunc
	now      func() time.Time

	// conns indexes every live connection by its id.
	conns map[uuid.UUID]*Connection

	events    chan func()
	done      chan struct{}
	stopOnce  sync.Once
	timers    map[int]*timer
	nextTimer int
}

var _ host.Engine = (*Engine)(nil)
var _ host.Timers = (*Engine)(nil)

// New returns an empty engine.
func New(log logger.Logger) *Engine {
	return &Engine{
		log:    log,
		params: map[paramKey]*param{},
		now:    time.Now,
		conns:  map[uuid.UUID]*Connection{},
		events: make(chan func(), eventQueueDepth),
		done:   make(chan struct{}),
		timers: map[int]*timer{},
	}
}

// Define creates or re-ranges a parameter and sets its value without notifying.
func (e *Engine) Define(group, key string, min, max, value float64) {
	p := e.param(group, key)
	p.min, p.max, p.value = min, max, value
}

// Watch registers fn for every write made by the mapping.
func (e *Engine) Watch(fn WatchFunc) {
	e.watchers = append(e.watchers, fn)
}

func (e *Engine) param(group, key string) *param {
	k := paramKey{group, key}
	p, ok := e.params[k]
	if !ok {
		p = &param{min: 0, max: 1}
		e.params[k] = p
	}
	return p
}

func (e *Engine) GetValue(group, key string) float64 {
	return e.param(group, key).value
}

func (e *Engine) SetValue(group, key string, value float64) {
	e.set(group, key, value)
	e.notifyWatchers(group, key, value)
}

func (e *Engine) GetParameter(group, key string) float64 {
	p := e.param(group, key)
	return p.toParameter(p.value)
}

// SetParameter writes a normalized value. With soft takeover enabled the
// write is dropped while the physical control has not caught up.
func (e *Engine) SetParameter(group, key string, parameter float64) {
	p := e.param(group, key)
	if p.takeover != nil && p.takeover.enabled {
		if p.takeover.ignore(p.toParameter(p.value), parameter, e.now()) {
			e.log.Module("engine").Debugf("soft takeover ignored %s,%s = %.3f", group, key, parameter)
			return
		}
	}
	value := p.fromParameter(parameter)
	e.set(group, key, value)
	e.notifyWatchers(group, key, value)
}

// Apply writes a value that originates outside of the mapping, e.g. the
// remote mixer. Connections are notified, watchers are not.
func (e *Engine) Apply(group, key string, value float64) {
	e.set(group, key, value)
}

func (e *Engine) set(group, key string, value float64) {
	p := e.param(group, key)
	if p.value == value {
		return
	}
	p.value = value
	// Callbacks may connect or disconnect while we iterate.
	conns := append([]*Connection(nil), p.conns...)
	for _, c := range conns {
		if c.live() {
			c.cb(value, group, key)
		}
	}
}

func (e *Engine) notifyWatchers(group, key string, value float64) {
	for _, w := range e.watchers {
		w(group, key, value)
	}
}

// MakeConnection subscribes cb to changes of (group, key).
func (e *Engine) MakeConnection(group, key string, cb host.Callback) host.Connection {
	c := &Connection{
		id:     uuid.New(),
		engine: e,
		group:  group,
		key:    key,
		cb:     cb,
	}
	p := e.param(group, key)
	p.conns = append(p.conns, c)
	e.conns[c.id] = c
	e.log.Module("engine").Debugf("connection %s made to %s,%s", c.id, group, key)
	return c
}

// Connection looks a live connection up by id.
func (e *Engine) Connection(id uuid.UUID) (host.Connection, bool) {
	c, ok := e.conns[id]
	if !ok {
		return nil, false
	}
	return c, true
}

// LiveConnections returns the number of connections not yet disconnected.
func (e *Engine) LiveConnections() int {
	return len(e.conns)
}

// Connections returns the number of live connections on (group, key).
func (e *Engine) Connections(group, key string) int {
	k := paramKey{group, key}
	if p, ok := e.params[k]; ok {
		return len(p.conns)
	}
	return 0
}

// Trigger notifies every connection of (group, key) with the current value.
func (e *Engine) Trigger(group, key string) {
	p := e.param(group, key)
	for _, c := range append([]*Connection(nil), p.conns...) {
		c.Trigger()
	}
}

func (e *Engine) SoftTakeover(group, key string, enable bool) {
	p := e.param(group, key)
	if p.takeover == nil {
		p.takeover = newSoftTakeover()
	}
	p.takeover.enabled = enable
}

func (e *Engine) SoftTakeoverIgnoreNextValue(group, key string) {
	p := e.param(group, key)
	if p.takeover == nil {
		p.takeover = newSoftTakeover()
	}
	p.takeover.ignoreNext()
}

// removeConnection reports false when id is not live.
func (e *Engine) removeConnection(id uuid.UUID) bool {
	c, ok := e.conns[id]
	if !ok {
		return false
	}
	delete(e.conns, id)
	p := e.param(c.group, c.key)
	for i, other := range p.conns {
		if other.id == id {
			p.conns = append(p.conns[:i], p.conns[i+1:]...)
			break
		}
	}
	return true
}

// Connection is a subscription made by MakeConnection.
type Connection struct {
	id     uuid.UUID
	engine *Engine
	group  string
	key    string
	cb     host.Callback
}

func (c *Connection) ID() uuid.UUID {
	return c.id
}

func (c *Connection) Disconnect() {
	if !c.engine.removeConnection(c.id) {
		return
	}
	c.engine.log.Module("engine").Debugf("connection %s to %s,%s disconnected", c.id, c.group, c.key)
}

func (c *Connection) live() bool {
	_, ok := c.engine.conns[c.id]
	return ok
}

func (c *Connection) Trigger() {
	if !c.live() {
		return
	}
	c.cb(c.engine.GetValue(c.group, c.key), c.group, c.key)
}
