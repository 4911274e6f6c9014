// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package phy

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/usbphy/syscon"
)

// ErrNotReady is returned by Get while the referenced node has not yet
// registered as a phy provider.
var ErrNotReady = errors.New("phy provider not ready")

// Xlate translates the specifier args of a consumer's reference to the
// provider node into one of its phys.
type Xlate func(r *Registry, provider *fdt.Node, args []uint32) (*Phy, error)

// SimpleXlate returns the phy created for the provider node itself.
func SimpleXlate(r *Registry, provider *fdt.Node, args []uint32) (*Phy, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, p := range r.byName {
		if p.Node == provider {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", provider.Name, syscall.ENODEV)
}

// RegisterProvider makes the phys of node n available to consumers through
// their "phys" property until owner is detached.
func (r *Registry) RegisterProvider(owner Owner, n *fdt.Node, xlate Xlate) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.providers == nil {
		r.providers = make(map[*fdt.Node]Xlate)
	}
	if _, found := r.providers[n]; found {
		return fmt.Errorf("%s: provider: %w", n.Name, syscall.EEXIST)
	}
	r.providers[n] = xlate
	owner.Defer(func() {
		r.mutex.Lock()
		defer r.mutex.Unlock()
		delete(r.providers, n)
	})
	return nil
}

// Get returns the index'th phy referred to by the consumer's "phys"
// property, <&provider [args]...> with #phy-cells args per provider.
func (r *Registry) Get(t *fdt.Tree, consumer *fdt.Node, index int) (*Phy, error) {
	b, found := consumer.Properties["phys"]
	if !found || len(b) < 4 {
		return nil, fmt.Errorf("%s: phys: %w", consumer.Name,
			syscall.ENODEV)
	}
	cells := t.PropUint32Slice(b)
	for i, pos := 0, 0; pos < len(cells); i++ {
		provider := syscon.FindPhandle(t, cells[pos])
		if provider == nil {
			return nil, fmt.Errorf("%s: phys: phandle %d: %w",
				consumer.Name, cells[pos], syscall.ENODEV)
		}
		n := 0
		if v, found := provider.Properties["#phy-cells"]; found &&
			len(v) >= 4 {
			n = int(t.PropUint32(v))
		}
		if pos+1+n > len(cells) {
			return nil, fmt.Errorf("%s: phys: %w", consumer.Name,
				syscall.EINVAL)
		}
		if i == index {
			return r.xlate(provider, cells[pos+1:pos+1+n])
		}
		pos += 1 + n
	}
	return nil, fmt.Errorf("%s: phys[%d]: %w", consumer.Name, index,
		syscall.ENOENT)
}

// GetByName looks up the phy by its entry in the consumer's "phy-names".
func (r *Registry) GetByName(t *fdt.Tree, consumer *fdt.Node, name string) (*Phy, error) {
	if b, found := consumer.Properties["phy-names"]; found {
		for i, s := range t.PropStringSlice(b) {
			if s == name {
				return r.Get(t, consumer, i)
			}
		}
	}
	return nil, fmt.Errorf("%s: phy-names: %s: %w", consumer.Name, name,
		syscall.ENOENT)
}

func (r *Registry) xlate(provider *fdt.Node, args []uint32) (*Phy, error) {
	r.mutex.Lock()
	xlate, found := r.providers[provider]
	r.mutex.Unlock()
	if !found {
		return nil, fmt.Errorf("%s: %w", provider.Name, ErrNotReady)
	}
	return xlate(r, provider, args)
}
