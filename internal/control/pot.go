package control

// PotOptions configures a Pot.
type PotOptions struct {
	Options
	// Relative treats input as encoder ticks; InScale then defaults to
	// Relative(1/128).
	Relative bool
	// Feedback connects the output key like a plain Control would.
	Feedback bool
}

// Pot writes normalized positions with soft takeover. Pots have no LED unless
// Feedback is set.
type Pot struct {
	*Control
	Relative bool
	Feedback bool

	firstValueReceived bool
}

func NewPot(env Env, opts PotOptions) *Pot {
	if opts.Relative && opts.InScale == nil {
		opts.InScale = Relative(1.0 / 128)
	}
	p := &Pot{
		Control:  newControl(env, opts.Options),
		Relative: opts.Relative,
		Feedback: opts.Feedback,
	}
	p.self = p
	return p
}

func (p *Pot) FirstValueReceived() bool {
	return p.firstValueReceived
}

func (p *Pot) Input(msg Message) {
	if !p.bound() {
		return
	}
	g := p.Group.String()
	e := p.env.Engine
	v := p.scaler().InValueScale(float64(msg.Value))
	if p.Relative {
		v = clamp01(e.GetParameter(g, p.InKey) + v)
	}
	if !p.firstValueReceived {
		// the first position is the reference for takeover
		p.firstValueReceived = true
		e.SoftTakeover(g, p.InKey, true)
	}
	e.SetParameter(g, p.InKey, v)
}

func (p *Pot) Connect() {
	if p.Feedback {
		p.Control.Connect()
		return
	}
	p.release()
	p.live = true
}

// Disconnect resets soft takeover of the current input key so that the next
// position after a rebinding is taken as is.
func (p *Pot) Disconnect() {
	if p.bound() {
		p.env.Engine.SoftTakeoverIgnoreNextValue(p.Group.String(), p.InKey)
	}
	p.firstValueReceived = false
	p.Control.Disconnect()
}

func (p *Pot) Trigger() {
	if p.Feedback {
		p.Control.Trigger()
	}
}
