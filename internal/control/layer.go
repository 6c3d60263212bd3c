package control

// Override lists the parts of a binding a layer changes. Nil fields keep the
// current value.
type Override struct {
	Group  *Group
	InKey  *string
	OutKey *string
	MIDI   *Address
}

// Apply returns b with o merged in. b is not modified.
func (b Binding) Apply(o Override) Binding {
	if o.Group != nil {
		b.Group = *o.Group
	}
	if o.InKey != nil {
		b.InKey = *o.InKey
	}
	if o.OutKey != nil {
		b.OutKey = *o.OutKey
	}
	if o.MIDI != nil {
		b.MIDI = *o.MIDI
	}
	return b
}

// IsZero reports whether o changes nothing.
func (o Override) IsZero() bool {
	return o.Group == nil && o.InKey == nil && o.OutKey == nil && o.MIDI == nil
}

// Layer is an override tree shaped like a container: Override applies to the
// control found at the same name, Members descends into nested containers and
// sequences. For a sequence the member names are indexes ("0", "1", ...).
type Layer struct {
	Override
	Members map[string]Layer
}

// Key is a helper for Override fields.
func Key(s string) *string {
	return &s
}

func GroupOf(g Group) *Group {
	return &g
}

func MIDIOf(status, number byte) *Address {
	return &Address{Status: status, Number: number}
}
