// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package syscon resolves system controller register regions described by a
// flattened device tree. Each region is opened once and shared by every
// driver that refers to it.
package syscon

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/log"
	"github.com/platinasystems/usbphy/regmap"
)

const Compatible = "syscon"

// An Opener maps size bytes of register space at base.
type Opener func(base, size uint32) (regmap.Map, error)

// Mmio opens regions from /dev/mem.
func Mmio(base, size uint32) (regmap.Map, error) {
	m, err := regmap.Open(base, size)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Sim opens zeroed in-memory regions.
func Sim(base, size uint32) (regmap.Map, error) {
	return regmap.NewMem(size), nil
}

type Syscon struct {
	mutex sync.Mutex
	open  Opener
	maps  map[*fdt.Node]regmap.Map
}

func New(open Opener) *Syscon {
	return &Syscon{
		open: open,
		maps: make(map[*fdt.Node]regmap.Map),
	}
}

// Node returns the shared register map of a syscon node.
func (s *Syscon) Node(t *fdt.Tree, n *fdt.Node) (regmap.Map, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if m, found := s.maps[n]; found {
		return m, nil
	}
	if !IsCompatible(t, n, Compatible) {
		return nil, fmt.Errorf("%s: not %s: %w", n.Name, Compatible,
			syscall.EINVAL)
	}
	b, found := n.Properties["reg"]
	if !found || len(b) < 8 {
		return nil, fmt.Errorf("%s: reg: %w", n.Name, syscall.EINVAL)
	}
	reg := t.PropUint32Slice(b)
	m, err := s.open(reg[0], reg[1])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.Name, err)
	}
	log.Print("debug", "syscon ", n.Name, fmt.Sprintf(": %#x+%#x", reg[0], reg[1]))
	s.maps[n] = m
	return m, nil
}

// LookupByPhandle returns the register map of the syscon node referred to
// by the phandle valued property of n.
func (s *Syscon) LookupByPhandle(t *fdt.Tree, n *fdt.Node, prop string) (regmap.Map, error) {
	b, found := n.Properties[prop]
	if !found || len(b) < 4 {
		return nil, fmt.Errorf("%s: %s: %w", n.Name, prop, syscall.ENODEV)
	}
	h := t.PropUint32(b)
	target := FindPhandle(t, h)
	if target == nil {
		return nil, fmt.Errorf("%s: %s: phandle %d: %w", n.Name, prop, h,
			syscall.ENODEV)
	}
	return s.Node(t, target)
}

// FindPhandle returns the node with the given phandle or nil.
func FindPhandle(t *fdt.Tree, h uint32) *fdt.Node {
	if t.RootNode == nil {
		return nil
	}
	return findPhandle(t, t.RootNode, h)
}

func findPhandle(t *fdt.Tree, n *fdt.Node, h uint32) *fdt.Node {
	for _, name := range []string{"phandle", "linux,phandle"} {
		if b, found := n.Properties[name]; found && len(b) >= 4 &&
			t.PropUint32(b) == h {
			return n
		}
	}
	for _, c := range n.Children {
		if found := findPhandle(t, c, h); found != nil {
			return found
		}
	}
	return nil
}

// IsCompatible reports whether compat is one of the node's compatible
// strings.
func IsCompatible(t *fdt.Tree, n *fdt.Node, compat string) bool {
	b, found := n.Properties["compatible"]
	if !found {
		return false
	}
	for _, s := range t.PropStringSlice(b) {
		if s == compat {
			return true
		}
	}
	return false
}
