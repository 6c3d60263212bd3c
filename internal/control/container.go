package control

import (
	"errors"
	"fmt"
	"strconv"

	"k2mapper/internal/logger"
)

// ErrUnknownMember is returned when a layer names a member the container lacks.
var ErrUnknownMember = errors.New("unknown member")

// Member is what a container holds: Leaf, Branch or Sequence.
type Member interface {
	member()
}

// Leaf holds one control.
type Leaf struct {
	Component
}

// Branch holds a nested container.
type Branch struct {
	*Container
}

// Sequence holds an ordered list of members.
type Sequence []Member

func (Leaf) member()     {}
func (Branch) member()   {}
func (Sequence) member() {}

// Container is an ordered set of named members.
type Container struct {
	log     logger.Logger
	names   []string
	members map[string]Member
	shifted bool
}

func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Container{
		log:     log,
		members: map[string]Member{},
	}
}

// Add stores m under name. Re-adding a name replaces the member in place.
func (c *Container) Add(name string, m Member) {
	if _, ok := c.members[name]; !ok {
		c.names = append(c.names, name)
	}
	c.members[name] = m
}

func (c *Container) AddControl(name string, comp Component) {
	c.Add(name, Leaf{comp})
}

func (c *Container) AddContainer(name string, sub *Container) {
	c.Add(name, Branch{sub})
}

func (c *Container) Member(name string) (Member, bool) {
	m, ok := c.members[name]
	return m, ok
}

// Control returns the control stored directly under name.
func (c *Container) Control(name string) (Component, bool) {
	if l, ok := c.members[name].(Leaf); ok && l.Component != nil {
		return l.Component, true
	}
	return nil, false
}

// Names returns the member names in insertion order.
func (c *Container) Names() []string {
	return append([]string(nil), c.names...)
}

func (c *Container) IsShifted() bool {
	return c.shifted
}

// ForEachControl calls visit for every reachable control, once per control,
// in insertion order. Without recursive nested containers are skipped.
// A panicking visit is logged and the traversal goes on.
func (c *Container) ForEachControl(visit func(Component), recursive bool) {
	seen := map[*Control]bool{}
	for _, name := range c.names {
		c.walk(name, c.members[name], visit, recursive, seen)
	}
}

func (c *Container) walk(path string, m Member, visit func(Component), recursive bool, seen map[*Control]bool) {
	switch m := m.(type) {
	case Leaf:
		base := baseOf(m.Component)
		if base == nil {
			c.log.Module("control").Errorf("member %s: nil control skipped", path)
			return
		}
		if seen[base] {
			return
		}
		seen[base] = true
		c.visit(path, m.Component, visit)
	case Branch:
		if !recursive {
			return
		}
		if m.Container == nil {
			c.log.Module("control").Errorf("member %s: nil container skipped", path)
			return
		}
		for _, name := range m.names {
			c.walk(path+"."+name, m.members[name], visit, recursive, seen)
		}
	case Sequence:
		for i, item := range m {
			c.walk(path+"."+strconv.Itoa(i), item, visit, recursive, seen)
		}
	default:
		c.log.Module("control").Errorf("member %s: unexpected %T skipped", path, m)
	}
}

// baseOf returns nil for nil controls, typed nil pointers included.
func baseOf(comp Component) (base *Control) {
	if comp == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			base = nil
		}
	}()
	return comp.Base()
}

func (c *Container) visit(path string, comp Component, visit func(Component)) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Module("control").Errorf("member %s: %v", path, r)
		}
	}()
	visit(comp)
}

// ReconnectControls disconnects, mutates, connects and triggers every
// reachable control, one control at a time.
func (c *Container) ReconnectControls(mutate func(Component)) {
	c.ForEachControl(func(comp Component) {
		comp.Disconnect()
		if mutate != nil {
			mutate(comp)
		}
		comp.Connect()
		comp.Trigger()
	}, true)
}

// DisconnectControls tears every reachable control down.
func (c *Container) DisconnectControls() {
	c.ForEachControl(func(comp Component) { comp.Disconnect() }, true)
}

func (c *Container) Shift() {
	c.setShifted(true)
	c.ForEachControl(func(comp Component) {
		if s, ok := comp.(ShiftAware); ok {
			s.Shift()
			return
		}
		comp.Base().shifted = true
	}, true)
}

func (c *Container) Unshift() {
	c.setShifted(false)
	c.ForEachControl(func(comp Component) {
		if s, ok := comp.(ShiftAware); ok {
			s.Unshift()
			return
		}
		comp.Base().shifted = false
	}, true)
}

func (c *Container) setShifted(shifted bool) {
	c.shifted = shifted
	for _, m := range c.members {
		c.eachBranch(m, func(b *Container) { b.setShifted(shifted) })
	}
}

func (c *Container) eachBranch(m Member, fn func(*Container)) {
	switch m := m.(type) {
	case Branch:
		if m.Container != nil {
			fn(m.Container)
		}
	case Sequence:
		for _, item := range m {
			c.eachBranch(item, fn)
		}
	}
}

type rebinding struct {
	comp    Component
	binding Binding
}

// ApplyLayer merges layer into the bindings of the container. The layer is
// checked first: an unknown member leaves every control as it was. With
// reconnect every control is disconnected before and connected and
// triggered after the bindings change.
func (c *Container) ApplyLayer(layer Layer, reconnect bool) error {
	var plan []rebinding
	if err := c.plan("", Branch{c}, layer, &plan); err != nil {
		return err
	}
	if reconnect {
		c.DisconnectControls()
	}
	for _, r := range plan {
		r.comp.Base().Binding = r.binding
	}
	if reconnect {
		c.ForEachControl(func(comp Component) {
			comp.Connect()
			comp.Trigger()
		}, true)
	}
	return nil
}

func (c *Container) plan(path string, m Member, layer Layer, plan *[]rebinding) error {
	switch m := m.(type) {
	case Leaf:
		if baseOf(m.Component) == nil {
			return fmt.Errorf("%s: %w", path, ErrUnknownMember)
		}
		if !layer.Override.IsZero() {
			// bindings planned earlier for the same control stack up
			b := m.Base().Binding
			for _, r := range *plan {
				if r.comp.Base() == m.Base() {
					b = r.binding
				}
			}
			*plan = append(*plan, rebinding{comp: m.Component, binding: b.Apply(layer.Override)})
		}
		if len(layer.Members) > 0 {
			return fmt.Errorf("%s: control has no members: %w", path, ErrUnknownMember)
		}
	case Branch:
		if m.Container == nil {
			return fmt.Errorf("%s: %w", path, ErrUnknownMember)
		}
		for name, sub := range layer.Members {
			child, ok := m.members[name]
			if !ok {
				return fmt.Errorf("%s: %w", join(path, name), ErrUnknownMember)
			}
			if err := c.plan(join(path, name), child, sub, plan); err != nil {
				return err
			}
		}
	case Sequence:
		for name, sub := range layer.Members {
			i, err := strconv.Atoi(name)
			if err != nil || i < 0 || i >= len(m) {
				return fmt.Errorf("%s: %w", join(path, name), ErrUnknownMember)
			}
			if err := c.plan(join(path, name), m[i], sub, plan); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%s: unexpected %T: %w", path, m, ErrUnknownMember)
	}
	return nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
