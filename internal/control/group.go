package control

import (
	"fmt"
	"regexp"
	"strconv"
)

// GroupKind tells which deck-relative shape a group has.
type GroupKind int

const (
	GroupNone GroupKind = iota
	GroupOther
	GroupChannel
	GroupEqualizer
	GroupQuickEffect
)

// Group is a host-side scope. Deck-relative groups keep their deck number so
// that a deck switch never has to look at the group name.
type Group struct {
	kind GroupKind
	deck int
	name string
}

// Channel is "[ChannelN]".
func Channel(n int) Group {
	return Group{kind: GroupChannel, deck: n}
}

// Equalizer is the equalizer of deck n.
func Equalizer(n int) Group {
	return Group{kind: GroupEqualizer, deck: n}
}

// QuickEffect is the quick effect rack of deck n.
func QuickEffect(n int) Group {
	return Group{kind: GroupQuickEffect, deck: n}
}

// Named is a group that is never re-pointed by a deck switch.
func Named(name string) Group {
	if name == "" {
		return Group{}
	}
	return Group{kind: GroupOther, name: name}
}

func EffectUnitGroup(unit int) Group {
	return Named(fmt.Sprintf("[EffectRack1_EffectUnit%d]", unit))
}

func EffectGroup(unit, effect int) Group {
	return Named(fmt.Sprintf("[EffectRack1_EffectUnit%d_Effect%d]", unit, effect))
}

func SamplerGroup(n int) Group {
	return Named(fmt.Sprintf("[Sampler%d]", n))
}

var (
	channelRe     = regexp.MustCompile(`^\[Channel(\d+)\]$`)
	equalizerRe   = regexp.MustCompile(`^\[EqualizerRack1_\[Channel(\d+)\]_Effect1\]$`)
	quickEffectRe = regexp.MustCompile(`^\[QuickEffectRack1_\[Channel(\d+)\]\]$`)
)

// ParseGroup resolves a group name once, when a binding is loaded.
func ParseGroup(s string) Group {
	for _, shape := range []struct {
		re   *regexp.Regexp
		kind GroupKind
	}{
		{channelRe, GroupChannel},
		{equalizerRe, GroupEqualizer},
		{quickEffectRe, GroupQuickEffect},
	} {
		if m := shape.re.FindStringSubmatch(s); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return Group{kind: shape.kind, deck: n}
			}
		}
	}
	return Named(s)
}

func (g Group) Kind() GroupKind {
	return g.kind
}

// Deck returns the deck number of a deck-relative group, 0 otherwise.
func (g Group) Deck() int {
	return g.deck
}

func (g Group) IsZero() bool {
	return g.kind == GroupNone
}

// ForDeck re-points a deck-relative group to deck n. Other groups are returned
// unchanged.
func (g Group) ForDeck(n int) Group {
	switch g.kind {
	case GroupChannel, GroupEqualizer, GroupQuickEffect:
		g.deck = n
	}
	return g
}

func (g Group) String() string {
	switch g.kind {
	case GroupChannel:
		return fmt.Sprintf("[Channel%d]", g.deck)
	case GroupEqualizer:
		return fmt.Sprintf("[EqualizerRack1_[Channel%d]_Effect1]", g.deck)
	case GroupQuickEffect:
		return fmt.Sprintf("[QuickEffectRack1_[Channel%d]]", g.deck)
	case GroupOther:
		return g.name
	default:
		return ""
	}
}
