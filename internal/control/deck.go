package control

import "k2mapper/internal/logger"

// Deck is a container whose deck-relative controls follow the current deck.
type Deck struct {
	*Container
	numbers []int
	current int
}

// NewDeck returns a deck cycling through numbers, starting at the first one.
func NewDeck(log logger.Logger, numbers ...int) *Deck {
	d := &Deck{
		Container: NewContainer(log),
		numbers:   append([]int(nil), numbers...),
	}
	if len(numbers) > 0 {
		d.current = numbers[0]
	}
	return d
}

func (d *Deck) CurrentDeck() int {
	return d.current
}

func (d *Deck) Numbers() []int {
	return append([]int(nil), d.numbers...)
}

// SetCurrentDeck points channel, equalizer and quick effect groups at deck n.
// Controls bound to any other group keep their group.
func (d *Deck) SetCurrentDeck(n int) {
	d.current = n
	d.ReconnectControls(func(comp Component) {
		b := comp.Base()
		b.Group = b.Group.ForDeck(n)
	})
	d.log.Module("control").Debugf("deck switched to %d", n)
}

// Toggle moves to the next deck number, wrapping around.
func (d *Deck) Toggle() {
	if len(d.numbers) == 0 {
		return
	}
	next := d.numbers[0]
	for i, n := range d.numbers {
		if n == d.current {
			next = d.numbers[(i+1)%len(d.numbers)]
			break
		}
	}
	d.SetCurrentDeck(next)
}
