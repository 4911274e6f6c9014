// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package phy

import (
	"reflect"
	"syscall"
	"testing"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/usbphy/internal/test"
)

func providerTree(t *testing.T) *fdt.Tree {
	return test.Assert{t}.Tree(test.Node("", nil,
		test.Node("usbphy@0", test.Props{
			"phandle":    test.Cells(1),
			"#phy-cells": test.Cells(0),
		}),
		test.Node("combphy@0", test.Props{
			"phandle":    test.Cells(2),
			"#phy-cells": test.Cells(1),
		}),
		test.Node("ehci@0", test.Props{
			"phys":      test.Cells(1, 2, 7),
			"phy-names": test.Strings("usb", "comb"),
		}),
		test.Node("nophys", nil),
		test.Node("dangling", test.Props{"phys": test.Cells(9)}),
		test.Node("short", test.Props{"phys": test.Cells(2)}),
	))
}

func child(t *fdt.Tree, name string) *fdt.Node {
	return t.RootNode.Children[name]
}

func TestGet(t *testing.T) {
	assert := test.Assert{t}
	dt := providerTree(t)
	r := new(Registry)
	ehci := child(dt, "ehci@0")
	o := &owner{name: "usbphy@0", node: child(dt, "usbphy@0")}

	_, err := r.Get(dt, ehci, 0)
	assert.Error(err, ErrNotReady)

	p, err := r.Create(o, new(ops))
	assert.Nil(err)
	assert.True(p.Node == o.node)
	assert.Nil(r.RegisterProvider(o, o.node, SimpleXlate))
	assert.Error(r.RegisterProvider(o, o.node, SimpleXlate), syscall.EEXIST)

	got, err := r.Get(dt, ehci, 0)
	assert.Nil(err)
	assert.True(got == p)
	got, err = r.GetByName(dt, ehci, "usb")
	assert.Nil(err)
	assert.True(got == p)

	o.detach()
	_, err = r.Get(dt, ehci, 0)
	assert.Error(err, ErrNotReady)
}

func TestGetArgs(t *testing.T) {
	assert := test.Assert{t}
	dt := providerTree(t)
	r := new(Registry)
	comb := &owner{name: "combphy@0", node: child(dt, "combphy@0")}
	p, err := r.Create(comb, new(ops))
	assert.Nil(err)
	var args []uint32
	assert.Nil(r.RegisterProvider(comb, comb.node,
		func(r *Registry, n *fdt.Node, a []uint32) (*Phy, error) {
			args = a
			return SimpleXlate(r, n, a)
		}))
	got, err := r.GetByName(dt, child(dt, "ehci@0"), "comb")
	assert.Nil(err)
	assert.True(got == p)
	if !reflect.DeepEqual(args, []uint32{7}) {
		t.Fatal("args:", args)
	}
}

func TestGetErrors(t *testing.T) {
	assert := test.Assert{t}
	dt := providerTree(t)
	r := new(Registry)
	o := &owner{name: "other", node: child(dt, "nophys")}
	_, err := r.Create(o, new(ops))
	assert.Nil(err)
	assert.Nil(r.RegisterProvider(o, child(dt, "usbphy@0"), SimpleXlate))

	for _, x := range []struct {
		node   string
		index  int
		expect error
	}{
		{"nophys", 0, syscall.ENODEV},
		{"dangling", 0, syscall.ENODEV},
		{"short", 0, syscall.EINVAL},
		{"ehci@0", 2, syscall.ENOENT},
		// provider registered but created no phy for its node
		{"ehci@0", 0, syscall.ENODEV},
	} {
		_, err := r.Get(dt, child(dt, x.node), x.index)
		assert.Error(err, x.expect)
	}
	_, err = r.GetByName(dt, child(dt, "ehci@0"), "host")
	assert.Error(err, syscall.ENOENT)
}
