package control

import (
	"math"
	"time"

	"k2mapper/internal/host"
)

// levelEpsilon absorbs float error of encoder steps around the centre.
const levelEpsilon = 1e-9

// LevelOptions configures a LevelLED. Status is the note-on status of the
// LED, Red/Yellow/Green are the notes of its three colours.
type LevelOptions struct {
	Group  Group
	Key    string
	Status byte
	Red    byte
	Yellow byte
	Green  byte
	// Tolerance around 0.5 still shown as centred.
	Tolerance float64
	// PeakKey, on the channel of the deck, turns the LED red while set.
	PeakKey string
}

// LevelLED is an output-only LED telling where a parameter sits: dark at the
// centre, green below, yellow above, red while the channel clips.
type LevelLED struct {
	*Control
	Red       byte
	Yellow    byte
	Green     byte
	Tolerance float64
	PeakKey   string
}

func NewLevelLED(env Env, opts LevelOptions) *LevelLED {
	l := &LevelLED{
		Control: newControl(env, Options{
			Group:  opts.Group,
			OutKey: opts.Key,
			MIDI:   Address{Status: opts.Status, Number: opts.Red},
		}),
		Red:       opts.Red,
		Yellow:    opts.Yellow,
		Green:     opts.Green,
		Tolerance: opts.Tolerance,
		PeakKey:   opts.PeakKey,
	}
	l.self = l
	return l
}

// peakGroup is the channel of the deck the LED follows.
func (l *LevelLED) peakGroup() Group {
	if l.Group.Deck() == 0 || l.PeakKey == "" {
		return Group{}
	}
	return Channel(l.Group.Deck())
}

func (l *LevelLED) Connect() {
	l.Control.Connect()
	l.subscribe(l.peakGroup(), l.PeakKey)
}

func (l *LevelLED) Output(_ float64, _, _ string) {
	if !l.MIDI.Valid() || l.env.MIDI == nil || l.Group.IsZero() {
		return
	}
	e := l.env.Engine
	if pg := l.peakGroup(); !pg.IsZero() && e.GetParameter(pg.String(), l.PeakKey) > 0 {
		l.env.MIDI.SendShortMsg(l.MIDI.Status, l.Red, 127)
		return
	}
	v := e.GetParameter(l.Group.String(), l.OutKey)
	switch {
	case math.Abs(v-0.5) <= l.Tolerance+levelEpsilon:
		off := host.StatusNoteOff | l.MIDI.Status&host.ChannelMask
		l.env.MIDI.SendShortMsg(off, l.Red, 0)
	case v < 0.5:
		l.env.MIDI.SendShortMsg(l.MIDI.Status, l.Green, 127)
	default:
		l.env.MIDI.SendShortMsg(l.MIDI.Status, l.Yellow, 127)
	}
}

// Leader picks the deck the mix follows and returns its tempo.
type Leader func() (deck int, bpm float64)

// LeadingDeck returns the first of decks that plays at a sane tempo with
// its volume at least a quarter up, 0 when none does.
func LeadingDeck(e host.Engine, decks []int) (int, float64) {
	for _, n := range decks {
		g := Channel(n).String()
		bpm := e.GetValue(g, "bpm")
		if e.GetValue(g, "play") > 0 && bpm >= 30 && bpm <= 240 && e.GetParameter(g, "volume") >= 0.25 {
			return n, bpm
		}
	}
	return 0, 0
}

// BeatLED flashes on every beat of its deck while the deck leads the mix and
// goes dark half a beat later.
type BeatLED struct {
	*Control
	Leader Leader

	offTimer int
}

// NewBeatLED watches beat_active of the channel in opts.Group.
func NewBeatLED(env Env, leader Leader, opts Options) *BeatLED {
	opts.InKey, opts.OutKey = "", "beat_active"
	b := &BeatLED{Control: newControl(env, opts), Leader: leader}
	b.self = b
	return b
}

func (b *BeatLED) Output(value float64, _, _ string) {
	if value <= 0 || b.Leader == nil {
		return
	}
	deck, bpm := b.Leader()
	if deck == 0 || deck != b.Group.Deck() {
		return
	}
	timers := b.env.Timers
	if timers == nil {
		return
	}
	b.stopTimer()
	b.Send(b.Max)
	b.offTimer = timers.BeginTimer(time.Duration(float64(time.Minute)/bpm/2), b.off, true)
	if b.offTimer == 0 {
		b.log().Error("blink off timer setup failed")
	}
}

func (b *BeatLED) off() {
	b.offTimer = 0
	b.Send(0)
}

func (b *BeatLED) stopTimer() {
	if b.offTimer != 0 {
		b.env.Timers.StopTimer(b.offTimer)
		b.offTimer = 0
	}
}

// Trigger does nothing, the LED only follows live beats.
func (b *BeatLED) Trigger() {}

func (b *BeatLED) Disconnect() {
	b.stopTimer()
	b.Control.Disconnect()
}
