// Package mapping is the device script runtime: it builds the control tree of a
// preset, routes incoming MIDI to it and runs the init/shutdown sequence.
package mapping

import (
	"fmt"

	"k2mapper/internal/control"
	"k2mapper/internal/host"
	"k2mapper/internal/logger"
	"k2mapper/internal/preset"
)

// routeKey identifies a physical control. Note-on and note-off share a key.
type routeKey struct {
	channel byte
	kind    host.MessageKind
	number  byte
}

func keyOf(status, number byte) routeKey {
	return routeKey{channel: status & host.ChannelMask, kind: host.KindOf(status), number: number}
}

type handler func(msg host.ShortMessage)

type route struct {
	h handler
	// magic routes are queued while the magic hold button is down
	magic bool
}

type routedControl struct {
	comp  control.Component
	magic bool
}

type deferred struct {
	h   handler
	msg host.ShortMessage
}

// Mapping is one controller driven by one preset.
type Mapping struct {
	log    logger.Logger
	env    control.Env
	preset *preset.Preset

	Root        *control.Container
	EffectUnits []*control.EffectUnit
	Decks       []*control.Deck

	// fixed routes do not belong to a control and never move
	fixed    map[routeKey][]route
	controls []routedControl
	routes   map[routeKey][]route

	magicHeld  bool
	magicQueue []deferred
	clearTimer int
}

// New builds the controls of p. Nothing is connected until Init. Timers
// come from env.Timers.
func New(env control.Env, p *preset.Preset, log logger.Logger) *Mapping {
	m := &Mapping{
		log:    log,
		env:    env,
		preset: p,
		Root:   control.NewContainer(log),
		fixed:  map[routeKey][]route{},
	}
	for _, pu := range p.EffectUnits {
		m.addEffectUnit(pu)
	}
	for i, pd := range p.Decks {
		m.addDeck(i, pd)
	}
	m.addSamplers(p.Samplers)
	if p.Shift != nil {
		m.route(address(*p.Shift), m.onShift)
	}
	if p.Magic != nil {
		m.route(address(p.Magic.Hold), m.onMagicHold)
		m.route(address(p.Magic.Fire), m.onMagicFire)
	}
	m.index()
	m.log.Module("mapping").Debugf("%s: %d routes", p.Device, len(m.routes))
	return m
}

func address(a preset.Address) control.Address {
	return control.Address{Status: a.Status, Number: a.Number}
}

func (m *Mapping) route(a control.Address, h handler) {
	k := keyOf(a.Status, a.Number)
	m.fixed[k] = append(m.fixed[k], route{h: h})
}

// routeControl registers comp, it is routed by the MIDI address it has
// whenever the routes are indexed.
func (m *Mapping) routeControl(comp control.Component) {
	m.controls = append(m.controls, routedControl{comp: comp})
}

func (m *Mapping) routeMagic(comp control.Component) {
	m.controls = append(m.controls, routedControl{comp: comp, magic: true})
}

// index rebuilds the routing table from the fixed routes and the current
// MIDI address of every control.
func (m *Mapping) index() {
	routes := make(map[routeKey][]route, len(m.fixed)+len(m.controls))
	for k, rs := range m.fixed {
		routes[k] = append(routes[k], rs...)
	}
	for _, rc := range m.controls {
		comp := rc.comp
		a := comp.Base().MIDI
		if !a.Valid() {
			continue
		}
		k := keyOf(a.Status, a.Number)
		routes[k] = append(routes[k], route{
			h: func(msg host.ShortMessage) {
				comp.Input(control.MessageFrom(msg, comp.Base().Group.String()))
			},
			magic: rc.magic,
		})
	}
	m.routes = routes
}

// ApplyLayer rebinds the controls and reroutes them to their new MIDI
// addresses.
func (m *Mapping) ApplyLayer(layer control.Layer) error {
	if err := m.Root.ApplyLayer(layer, true); err != nil {
		return err
	}
	m.index()
	return nil
}

// buttonOptions picks note-on press detection for note addressed buttons, the
// K2 sends note-off with a velocity on release.
func buttonOptions(group control.Group, key string, a preset.Address) control.ButtonOptions {
	opts := control.ButtonOptions{Options: control.Options{Group: group, Key: key, MIDI: address(a)}}
	opts.Press = pressPolicy(a.Status)
	return opts
}

func pressPolicy(status byte) control.PressPolicy {
	if host.KindOf(status) == host.KindNote {
		return control.PressOnNoteOn
	}
	return control.PressOnValue
}

func isPress(msg host.ShortMessage) bool {
	switch msg.Status & host.StatusCodeMask {
	case host.StatusNoteOn, host.StatusControlChange:
		return msg.Data2 > 0
	}
	return false
}

func (m *Mapping) addEffectUnit(pu preset.EffectUnit) {
	u := control.NewEffectUnit(m.env, pu.Unit)
	if pu.DryWet != nil {
		u.DryWetKnob.MIDI = address(*pu.DryWet)
		m.routeControl(u.DryWetKnob)
	}
	for i, a := range pu.Knobs {
		u.Knobs[i].MIDI = address(a)
		m.routeControl(u.Knobs[i])
	}
	for i, a := range pu.EnableButtons {
		b := u.EnableButtons[i]
		b.MIDI = address(a)
		b.Press = pressPolicy(a.Status)
		m.routeControl(b)
	}
	if pu.ShowParameters != nil {
		b := u.ShowParametersButton
		b.MIDI = address(*pu.ShowParameters)
		b.Press = pressPolicy(pu.ShowParameters.Status)
		m.routeControl(b)
	}
	for _, source := range pu.Sources() {
		a := pu.EnableOnChannel[source]
		b := u.AddEnableOnChannelButton(source, address(a))
		b.Press = pressPolicy(a.Status)
		m.routeControl(b)
	}
	m.EffectUnits = append(m.EffectUnits, u)
	m.Root.AddContainer(fmt.Sprintf("effectUnit%d", pu.Unit), u.Container)
}

func (m *Mapping) addDeck(i int, pd preset.Deck) {
	d := control.NewDeck(m.log, pd.Numbers...)
	first := d.CurrentDeck()
	channel := control.Channel(first)

	add := func(name string, comp control.Component) {
		d.AddControl(name, comp)
		m.routeControl(comp)
	}
	if pd.Play != nil {
		add("play", control.NewPlayButton(m.env, buttonOptions(channel, "", *pd.Play)))
	}
	if pd.Cue != nil {
		add("cue", control.NewCueButton(m.env, buttonOptions(channel, "", *pd.Cue)))
	}
	if pd.Sync != nil {
		add("sync", control.NewSyncButton(m.env, buttonOptions(channel, "", *pd.Sync)))
	}
	if pd.Loop != nil {
		add("loop", control.NewLoopToggleButton(m.env, buttonOptions(channel, "", *pd.Loop)))
	}

	hotcues := control.Sequence{}
	for _, h := range pd.Hotcues {
		b := control.NewHotcueButton(m.env, h.Number, buttonOptions(channel, "", h.MIDI))
		hotcues = append(hotcues, control.Leaf{Component: b})
		m.routeControl(b)
	}
	d.Add("hotcues", hotcues)

	buttons := control.Sequence{}
	for _, pb := range pd.Buttons {
		opts := buttonOptions(deckGroup(pb.Group, first), pb.Key, pb.MIDI)
		var b control.Component
		if pb.Set != nil {
			b = control.NewResetButton(m.env, *pb.Set, opts)
		} else {
			opts.Hold, opts.Pulse = pb.Hold, pb.Pulse
			b = control.NewButton(m.env, opts)
		}
		buttons = append(buttons, control.Leaf{Component: b})
		m.routeControl(b)
	}
	d.Add("buttons", buttons)

	pots := control.Sequence{}
	for _, pp := range pd.Pots {
		opts := potOptions(deckGroup(pp.Group, first), pp)
		var p control.Component
		if opts.Relative && opts.Feedback {
			p = control.NewRingEncoder(m.env, control.RingOptions{Options: opts.Options, Relative: true})
		} else {
			p = control.NewPot(m.env, opts)
		}
		pots = append(pots, control.Leaf{Component: p})
		m.routeControl(p)
	}
	d.Add("pots", pots)

	filters := control.Sequence{}
	for _, pf := range pd.Filters {
		kind := control.HighPass
		if pf.Kind == preset.FilterLowPass {
			kind = control.LowPass
		}
		f := control.NewFilter(m.env, kind, pf.Unit, address(pf.Button), address(pf.Knob))
		filters = append(filters, control.Leaf{Component: f.Button}, control.Leaf{Component: f.Knob})
		if pf.Magic {
			m.routeMagic(f.Button)
		} else {
			m.routeControl(f.Button)
		}
		m.routeControl(f.Knob)
	}
	d.Add("filters", filters)

	levels := control.Sequence{}
	for _, pl := range pd.Levels {
		levels = append(levels, control.Leaf{Component: control.NewLevelLED(m.env, control.LevelOptions{
			Group:     deckGroup(pl.Group, first),
			Key:       pl.Key,
			Status:    pl.Status,
			Red:       pl.Red,
			Yellow:    pl.Yellow,
			Green:     pl.Green,
			Tolerance: pl.Tolerance,
			PeakKey:   pl.Peak,
		})})
	}
	d.Add("levels", levels)

	if pd.Beat != nil {
		d.AddControl("beat", control.NewBeatLED(m.env, m.leader, control.Options{Group: channel, MIDI: address(*pd.Beat)}))
	}

	steps := control.Sequence{}
	for _, ps := range pd.Steps {
		s := control.NewStepEncoder(m.env, control.StepOptions{
			Options:     control.Options{Group: deckGroup(ps.Group, first), Key: ps.Key, MIDI: address(ps.MIDI)},
			Low:         ps.Low,
			High:        ps.High,
			Sensitivity: ps.Sensitivity,
			Lock:        ps.Lock,
		})
		steps = append(steps, control.Leaf{Component: s})
		m.routeControl(s)
	}
	d.Add("steps", steps)

	if pd.Ramp != nil {
		add("ramp", control.NewRamp(m.env, pd.Ramp.Interval, buttonOptions(channel, "", pd.Ramp.MIDI)))
	}

	if pd.Toggle != nil {
		m.route(address(*pd.Toggle), func(msg host.ShortMessage) {
			if isPress(msg) {
				d.Toggle()
			}
		})
	}

	name := pd.Name
	if name == "" {
		name = fmt.Sprintf("deck%d", i+1)
	}
	m.Decks = append(m.Decks, d)
	m.Root.AddContainer(name, d.Container)
}

// deckGroup resolves a preset group, empty meaning the channel, and points
// deck-relative groups at the first deck.
func deckGroup(name string, deck int) control.Group {
	if name == "" {
		return control.Channel(deck)
	}
	return control.ParseGroup(name).ForDeck(deck)
}

func potOptions(group control.Group, pp preset.Pot) control.PotOptions {
	opts := control.PotOptions{
		Options:  control.Options{Group: group, Key: pp.Key, MIDI: address(pp.MIDI)},
		Relative: pp.Encoder,
		Feedback: pp.Feedback,
	}
	if c := pp.Curve; c != nil {
		switch c.Kind {
		case preset.CurveExp:
			to := c.To
			if c.From == 0 && to == 0 {
				to = 1
			}
			opts.InScale = control.ExpCurve(0, 127, c.From, to, c.A)
		case preset.CurveEQ:
			opts.InScale = control.CenterDetent(c.Threshold, c.A)
		case preset.CurveRelative:
			opts.Relative = true
			opts.InScale = control.Relative(c.Step)
		}
	}
	return opts
}

func (m *Mapping) addSamplers(samplers []preset.Sampler) {
	if len(samplers) == 0 {
		return
	}
	seq := control.Sequence{}
	for _, ps := range samplers {
		b := control.NewSamplerButton(m.env, control.SamplerOptions{
			ButtonOptions: buttonOptions(control.Group{}, "", ps.MIDI),
			Number:        ps.Number,
			Playing:       float64(ps.Playing),
		})
		seq = append(seq, control.Leaf{Component: b})
		m.routeControl(b)
	}
	m.Root.Add("samplers", seq)
}

// leader picks the deck the beat LEDs follow among the current decks.
func (m *Mapping) leader() (int, float64) {
	decks := make([]int, 0, len(m.Decks))
	for _, d := range m.Decks {
		decks = append(decks, d.CurrentDeck())
	}
	return control.LeadingDeck(m.env.Engine, decks)
}

func (m *Mapping) onShift(msg host.ShortMessage) {
	if isPress(msg) {
		m.Root.Shift()
		return
	}
	m.Root.Unshift()
}

func (m *Mapping) onMagicHold(msg host.ShortMessage) {
	m.magicHeld = isPress(msg)
}

// onMagicFire plays the queued messages back, newest first.
func (m *Mapping) onMagicFire(msg host.ShortMessage) {
	if !isPress(msg) {
		return
	}
	queue := m.magicQueue
	m.magicQueue = nil
	m.log.Module("mapping").Debugf("firing %d deferred messages", len(queue))
	for i := len(queue) - 1; i >= 0; i-- {
		queue[i].h(queue[i].msg)
	}
}

// Queued returns the number of deferred magic messages.
func (m *Mapping) Queued() int {
	return len(m.magicQueue)
}

// Input dispatches one message to every control at its address.
func (m *Mapping) Input(msg host.ShortMessage) {
	routes, ok := m.routes[keyOf(msg.Status, msg.Data1)]
	if !ok {
		m.log.Module("mapping").Debugf("unmapped message %#02x %#02x %#02x", msg.Status, msg.Data1, msg.Data2)
		return
	}
	for _, r := range routes {
		if r.magic && m.magicHeld {
			m.magicQueue = append(m.magicQueue, deferred{h: r.h, msg: msg})
			continue
		}
		r.h(msg)
	}
}

// Init writes the preset init values, clears the LEDs, connects every control
// and pushes the current state out. The LEDs are cleared once more after the
// preset delay since the hardware drops writes right after the port opens.
func (m *Mapping) Init(deviceID string) {
	m.log.Module("mapping").Infof("%q initialized with %s", deviceID, m.preset.Device)
	for _, v := range m.preset.Init {
		m.env.Engine.SetValue(v.Group, v.Key, v.Value)
	}
	m.clearLights()
	if delay := m.preset.ClearLights.Delay; delay > 0 && m.env.Timers != nil {
		m.clearTimer = m.env.Timers.BeginTimer(delay, m.refresh, true)
		if m.clearTimer == 0 {
			m.log.Module("mapping").Error("clear lights timer setup failed")
		}
	}
	for _, u := range m.EffectUnits {
		u.Init()
	}
	m.Root.ReconnectControls(nil)
}

// refresh clears the LEDs and lights them again from the current state.
func (m *Mapping) refresh() {
	m.clearTimer = 0
	m.clearLights()
	m.Root.ForEachControl(func(comp control.Component) {
		comp.Trigger()
	}, true)
}

// Shutdown disconnects everything and leaves the LEDs dark.
func (m *Mapping) Shutdown(deviceID string) {
	if m.clearTimer != 0 && m.env.Timers != nil {
		m.env.Timers.StopTimer(m.clearTimer)
		m.clearTimer = 0
	}
	for _, u := range m.EffectUnits {
		u.Shutdown()
	}
	m.Root.DisconnectControls()
	m.magicHeld, m.magicQueue = false, nil
	m.clearLights()
	m.log.Module("mapping").Infof("%q shut down", deviceID)
}

func (m *Mapping) clearLights() {
	if m.env.MIDI == nil {
		return
	}
	cl := m.preset.ClearLights
	for _, status := range cl.All() {
		for _, n := range cl.Notes {
			m.env.MIDI.SendShortMsg(status, byte(n), 0)
		}
	}
}
