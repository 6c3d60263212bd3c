// Package preset describes controller layouts in YAML.
package preset

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoPreset is returned for an unknown builtin preset.
var ErrNoPreset = errors.New("no such preset")

//go:embed presets/*.yaml
var builtin embed.FS

// Preset is the layout of one controller.
type Preset struct {
	Device      string       `yaml:"device"`
	ClearLights ClearLights  `yaml:"clearLights"`
	Shift       *Address     `yaml:"shift"`
	Magic       *Magic       `yaml:"magic"`
	Init        []InitValue  `yaml:"init"`
	EffectUnits []EffectUnit `yaml:"effectUnits"`
	Decks       []Deck       `yaml:"decks"`
	Samplers    []Sampler    `yaml:"samplers"`
}

// ClearLights lists the LEDs switched off on init and shutdown. Delay
// schedules one more pass for devices that ignore writes right after opening.
// Statuses repeats the notes on more MIDI channels.
type ClearLights struct {
	Status   byte          `yaml:"status"`
	Statuses []byte        `yaml:"statuses"`
	Notes    []int         `yaml:"notes"`
	Delay    time.Duration `yaml:"delay"`
}

// All returns every status the notes are cleared on.
func (c ClearLights) All() []byte {
	var all []byte
	if c.Status != 0 {
		all = append(all, c.Status)
	}
	return append(all, c.Statuses...)
}

// Magic defers presses: while Hold is down, presses on magic controls are
// queued, and Fire plays the queue back.
type Magic struct {
	Hold Address `yaml:"hold"`
	Fire Address `yaml:"fire"`
}

// InitValue is written once when the mapping starts.
type InitValue struct {
	Group string  `yaml:"group"`
	Key   string  `yaml:"key"`
	Value float64 `yaml:"value"`
}

// Address is written as [status, number].
type Address struct {
	Status byte
	Number byte
}

func (a *Address) UnmarshalYAML(value *yaml.Node) error {
	var raw []int
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("line %d: midi address: %w", value.Line, err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("line %d: midi address needs [status, number], got %v", value.Line, raw)
	}
	if raw[0] < 0x80 || raw[0] > 0xff || raw[1] < 0 || raw[1] > 0x7f {
		return fmt.Errorf("line %d: midi address out of range: %v", value.Line, raw)
	}
	a.Status, a.Number = byte(raw[0]), byte(raw[1])
	return nil
}

func (a Address) MarshalYAML() (interface{}, error) {
	return []int{int(a.Status), int(a.Number)}, nil
}

func (a Address) String() string {
	return fmt.Sprintf("[%#02x, %#02x]", a.Status, a.Number)
}

// EffectUnit places an effect unit on the controller.
type EffectUnit struct {
	Unit            int                `yaml:"unit"`
	DryWet          *Address           `yaml:"dryWet"`
	Knobs           []Address          `yaml:"knobs"`
	EnableButtons   []Address          `yaml:"enableButtons"`
	ShowParameters  *Address           `yaml:"showParameters"`
	EnableOnChannel map[string]Address `yaml:"enableOnChannel"`
}

// Sources returns the enable-on-channel sources in a stable order.
func (u EffectUnit) Sources() []string {
	sources := make([]string, 0, len(u.EnableOnChannel))
	for s := range u.EnableOnChannel {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

// Deck is a set of controls following the current deck.
type Deck struct {
	Name    string   `yaml:"name"`
	Numbers []int    `yaml:"numbers"`
	Toggle  *Address `yaml:"toggle"`
	Play    *Address `yaml:"play"`
	Cue     *Address `yaml:"cue"`
	Sync    *Address `yaml:"sync"`
	Loop    *Address `yaml:"loop"`
	Hotcues []Hotcue `yaml:"hotcues"`
	Buttons []Button `yaml:"buttons"`
	Pots    []Pot    `yaml:"pots"`
	Filters []Filter `yaml:"filters"`
	Levels  []Level  `yaml:"levels"`
	Steps   []Step   `yaml:"steps"`
	// Beat is the LED flashing on the beats while the deck leads the mix.
	Beat *Address `yaml:"beat"`
	Ramp *Ramp    `yaml:"ramp"`
}

type Hotcue struct {
	Number int     `yaml:"number"`
	MIDI   Address `yaml:"midi"`
}

// Button is a generic toggle, pulse or hold button. An empty group means
// the channel of the deck. Set turns it into a button writing that
// normalized value on every press.
type Button struct {
	Group string   `yaml:"group"`
	Key   string   `yaml:"key"`
	MIDI  Address  `yaml:"midi"`
	Hold  bool     `yaml:"hold"`
	Pulse bool     `yaml:"pulse"`
	Set   *float64 `yaml:"set"`
}

// Filter kinds.
const (
	FilterHighPass = "highpass"
	FilterLowPass  = "lowpass"
)

// Filter is a filter knob switched in and out by a button, on the first
// effect of an effect unit.
type Filter struct {
	Kind   string  `yaml:"kind"`
	Unit   int     `yaml:"unit"`
	Knob   Address `yaml:"knob"`
	Button Address `yaml:"button"`
	// Magic buttons are queued while the magic hold button is down.
	Magic bool `yaml:"magic"`
}

// Level is a three colour LED showing a parameter against its centre.
type Level struct {
	Group     string  `yaml:"group"`
	Key       string  `yaml:"key"`
	Status    byte    `yaml:"status"`
	Red       byte    `yaml:"red"`
	Yellow    byte    `yaml:"yellow"`
	Green     byte    `yaml:"green"`
	Tolerance float64 `yaml:"tolerance"`
	Peak      string  `yaml:"peak"`
}

// Step is an encoder moving a whole-number value within Low..High.
type Step struct {
	Group       string  `yaml:"group"`
	Key         string  `yaml:"key"`
	MIDI        Address `yaml:"midi"`
	Low         float64 `yaml:"low"`
	High        float64 `yaml:"high"`
	Sensitivity int     `yaml:"sensitivity"`
	Lock        string  `yaml:"lock"`
}

// Ramp is the button moving the deck tempo to bpm_target.
type Ramp struct {
	MIDI     Address       `yaml:"midi"`
	Interval time.Duration `yaml:"interval"`
}

// Pot is a knob, fader or encoder. An empty group means the channel of the
// deck.
type Pot struct {
	Group    string  `yaml:"group"`
	Key      string  `yaml:"key"`
	MIDI     Address `yaml:"midi"`
	Curve    *Curve  `yaml:"curve"`
	Encoder  bool    `yaml:"encoder"`
	Feedback bool    `yaml:"feedback"`
}

// Curve kinds.
const (
	CurveLinear   = "linear"
	CurveExp      = "exp"
	CurveEQ       = "eq"
	CurveRelative = "relative"
	CurveOffset   = "offset"
)

// Curve selects the input scaling of a pot.
type Curve struct {
	Kind      string  `yaml:"kind"`
	From      float64 `yaml:"from"`
	To        float64 `yaml:"to"`
	A         float64 `yaml:"a"`
	Threshold float64 `yaml:"threshold"`
	Step      float64 `yaml:"step"`
}

type Sampler struct {
	Number  int     `yaml:"number"`
	MIDI    Address `yaml:"midi"`
	Playing int     `yaml:"playing"`
}

// Parse decodes and validates a preset.
func Parse(data []byte) (*Preset, error) {
	p := &Preset{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("preset. decode: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads a preset file.
func Load(file string) (*Preset, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("preset. read %s: %w", file, err)
	}
	return Parse(data)
}

// Builtin returns an embedded preset by name.
func Builtin(name string) (*Preset, error) {
	data, err := builtin.ReadFile(path.Join("presets", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPreset, name)
	}
	return Parse(data)
}

// Builtins lists the embedded preset names.
func Builtins() []string {
	entries, err := builtin.ReadDir("presets")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return names
}

// Validate checks what the mapping cannot recover from. Missing hotcue and
// sampler numbers are left to the controls, which log them.
func (p *Preset) Validate() error {
	for i, n := range p.ClearLights.Notes {
		if n < 0 || n > 0x7f {
			return fmt.Errorf("preset. clearLights.notes[%d]: %d out of range", i, n)
		}
	}
	if len(p.ClearLights.Notes) > 0 && len(p.ClearLights.All()) == 0 {
		return errors.New("preset. clearLights: notes without status")
	}
	for _, status := range p.ClearLights.All() {
		if status < 0x80 {
			return fmt.Errorf("preset. clearLights: %#02x is not a status byte", status)
		}
	}
	for i, v := range p.Init {
		if v.Group == "" || v.Key == "" {
			return fmt.Errorf("preset. init[%d]: group and key are required", i)
		}
	}
	for i, u := range p.EffectUnits {
		if u.Unit <= 0 {
			return fmt.Errorf("preset. effectUnits[%d]: unit must be positive", i)
		}
		if len(u.Knobs) > 3 || len(u.EnableButtons) > 3 {
			return fmt.Errorf("preset. effectUnits[%d]: at most 3 knobs and enable buttons", i)
		}
	}
	for i, d := range p.Decks {
		if len(d.Numbers) == 0 {
			return fmt.Errorf("preset. decks[%d] %q: no deck numbers", i, d.Name)
		}
		for j, pot := range d.Pots {
			if pot.Key == "" {
				return fmt.Errorf("preset. decks[%d].pots[%d]: no key", i, j)
			}
			if err := pot.Curve.validate(); err != nil {
				return fmt.Errorf("preset. decks[%d].pots[%d]: %w", i, j, err)
			}
		}
		for j, b := range d.Buttons {
			if b.Key == "" {
				return fmt.Errorf("preset. decks[%d].buttons[%d]: no key", i, j)
			}
		}
		if err := d.validate(); err != nil {
			return fmt.Errorf("preset. decks[%d]%w", i, err)
		}
	}
	return nil
}

func (d Deck) validate() error {
	for j, f := range d.Filters {
		if f.Kind != FilterHighPass && f.Kind != FilterLowPass {
			return fmt.Errorf(".filters[%d]: unknown kind %q", j, f.Kind)
		}
		if f.Unit <= 0 {
			return fmt.Errorf(".filters[%d]: unit must be positive", j)
		}
	}
	for j, l := range d.Levels {
		if l.Key == "" {
			return fmt.Errorf(".levels[%d]: no key", j)
		}
		if l.Status < 0x80 {
			return fmt.Errorf(".levels[%d]: %#02x is not a status byte", j, l.Status)
		}
	}
	for j, s := range d.Steps {
		if s.Key == "" {
			return fmt.Errorf(".steps[%d]: no key", j)
		}
		if s.High <= s.Low {
			return fmt.Errorf(".steps[%d]: empty range %g..%g", j, s.Low, s.High)
		}
	}
	return nil
}

func (c *Curve) validate() error {
	if c == nil {
		return nil
	}
	switch c.Kind {
	case "", CurveLinear, CurveExp, CurveEQ:
	case CurveRelative, CurveOffset:
		if c.Step == 0 {
			return fmt.Errorf("%s curve without step", c.Kind)
		}
	default:
		return fmt.Errorf("unknown curve %q", c.Kind)
	}
	return nil
}
