// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package phy is a generic physical layer transceiver framework. Drivers
// create a Phy for each transceiver they control; controller drivers look it
// up by name and request power on or off without knowledge of the chip.
package phy

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"syscall"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/log"
	uuid "github.com/satori/go.uuid"
)

// Ops are implemented by the transceiver driver.
type Ops interface {
	PowerOn() error
	PowerOff() error
}

// Drivers may also implement Dumper to report hardware state.
type Dumper interface {
	Dump(w io.Writer) error
}

// Owner is the device providing a Phy. The Phy is unregistered with the
// owner's deferred cleanup.
type Owner interface {
	String() string
	Defer(func())
}

type State int

const (
	Unknown State = iota
	On
	Off
)

func (s State) String() string {
	switch s {
	case On:
		return "on"
	case Off:
		return "off"
	}
	return "unknown"
}

type Phy struct {
	Id   uuid.UUID
	Name string
	// device tree node of the owner, if it has one
	Node *fdt.Node

	ops   Ops
	reg   *Registry
	mutex sync.Mutex
	state State
}

func (p *Phy) String() string { return p.Name }

// Ops returns the driver context of the phy.
func (p *Phy) Ops() Ops { return p.ops }

// State of the last successful power request.
func (p *Phy) State() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}

func (p *Phy) PowerOn() error {
	return p.power(On, p.ops.PowerOn)
}

func (p *Phy) PowerOff() error {
	return p.power(Off, p.ops.PowerOff)
}

func (p *Phy) power(s State, f func() error) error {
	p.mutex.Lock()
	err := f()
	if err == nil {
		p.state = s
	}
	p.mutex.Unlock()
	if err != nil {
		log.Print("err", p.Name, ": power ", s, ": ", err)
		return fmt.Errorf("%s: power %s: %w", p.Name, s, err)
	}
	log.Print("debug", p.Name, ": power ", s)
	if notify := p.reg.notifier(); notify != nil {
		notify(p, s)
	}
	return nil
}

// Dump the driver's hardware state if it knows how.
func (p *Phy) Dump(w io.Writer) error {
	if d, ok := p.ops.(Dumper); ok {
		return d.Dump(w)
	}
	return nil
}

// Registry of phys by owner name.
type Registry struct {
	mutex     sync.Mutex
	byName    map[string]*Phy
	providers map[*fdt.Node]Xlate
	notify    func(*Phy, State)
}

// Notify calls f after each successful power request of any phy in r.
func (r *Registry) Notify(f func(*Phy, State)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.notify = f
}

func (r *Registry) notifier() func(*Phy, State) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.notify
}

// Create registers a phy for owner controlled by ops.
func (r *Registry) Create(owner Owner, ops Ops) (*Phy, error) {
	name := owner.String()
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.byName == nil {
		r.byName = make(map[string]*Phy)
	}
	if _, found := r.byName[name]; found {
		return nil, fmt.Errorf("%s: %w", name, syscall.EEXIST)
	}
	p := &Phy{
		Id:   uuid.NewV4(),
		Name: name,
		ops:  ops,
		reg:  r,
	}
	if o, ok := owner.(interface{ DeviceNode() *fdt.Node }); ok {
		p.Node = o.DeviceNode()
	}
	r.byName[name] = p
	owner.Defer(func() { r.remove(p) })
	return p, nil
}

func (r *Registry) remove(p *Phy) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.byName[p.Name] == p {
		delete(r.byName, p.Name)
	}
}

func (r *Registry) Lookup(name string) (*Phy, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if p, found := r.byName[name]; found {
		return p, nil
	}
	return nil, fmt.Errorf("%s: %w", name, syscall.ENODEV)
}

// All registered phys sorted by name.
func (r *Registry) All() []*Phy {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	phys := make([]*Phy, 0, len(r.byName))
	for _, p := range r.byName {
		phys = append(phys, p)
	}
	sort.Slice(phys, func(i, j int) bool {
		return phys[i].Name < phys[j].Name
	})
	return phys
}
