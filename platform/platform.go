// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package platform binds drivers to the devices of a flattened device tree
// by compatible string.
package platform

import (
	"fmt"
	"sort"
	"sync"
	"syscall"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/log"
	"github.com/platinasystems/usbphy/syscon"
)

type Driver struct {
	Name       string
	Compatible []string
	Probe      func(*Device) error
}

// Registry of drivers. Machines register each driver once before Bind.
type Registry struct {
	mutex   sync.Mutex
	drivers []*Driver
	byName  map[string]*Driver
}

func (r *Registry) Register(d *Driver) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if d.Name == "" || d.Probe == nil {
		return fmt.Errorf("driver %q: incomplete: %w", d.Name,
			syscall.EINVAL)
	}
	if r.byName == nil {
		r.byName = make(map[string]*Driver)
	}
	if _, found := r.byName[d.Name]; found {
		return fmt.Errorf("%s: %w", d.Name, syscall.EEXIST)
	}
	r.byName[d.Name] = d
	r.drivers = append(r.drivers, d)
	return nil
}

// Driver returns the registered driver by name, or nil.
func (r *Registry) Driver(name string) *Driver {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.byName[name]
}

// Match returns the first registered driver compatible with n, or nil.
func (r *Registry) Match(t *fdt.Tree, n *fdt.Node) *Driver {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, d := range r.drivers {
		if matches(t, n, d) {
			return d
		}
	}
	return nil
}

func matches(t *fdt.Tree, n *fdt.Node, d *Driver) bool {
	for _, compat := range d.Compatible {
		if syscon.IsCompatible(t, n, compat) {
			return true
		}
	}
	return false
}

// Probe binds d to dev. Managed resources of a failed probe are released
// before the error is returned.
func (r *Registry) Probe(d *Driver, dev *Device) error {
	if !matches(dev.Tree, dev.Node, d) {
		return fmt.Errorf("%s: %s: %w", d.Name, dev, syscall.ENODEV)
	}
	dev.Driver = d
	if err := d.Probe(dev); err != nil {
		dev.Detach()
		dev.Driver = nil
		log.Print("err", d.Name, ": ", dev, ": probe failed: ", err)
		return err
	}
	log.Print("info", d.Name, ": ", dev, ": bound")
	return nil
}

// Bind probes every node of t that has a compatible driver, in node name
// order. Binding continues past a failed probe; the first such error is
// returned with the devices that did bind.
func (r *Registry) Bind(t *fdt.Tree) (devs []*Device, err error) {
	if t.RootNode == nil {
		return nil, fmt.Errorf("device tree: empty: %w", syscall.ENODEV)
	}
	eachNode(t.RootNode, func(n *fdt.Node) {
		d := r.Match(t, n)
		if d == nil {
			return
		}
		dev := NewDevice(t, n)
		if perr := r.Probe(d, dev); perr != nil {
			if err == nil {
				err = perr
			}
			return
		}
		devs = append(devs, dev)
	})
	return
}

func eachNode(n *fdt.Node, f func(*fdt.Node)) {
	f(n)
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		eachNode(n.Children[name], f)
	}
}
