// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package platform

import (
	"errors"
	"reflect"
	"syscall"
	"testing"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/usbphy/internal/test"
)

func tree(t *testing.T) *fdt.Tree {
	return test.Assert{t}.Tree(test.Node("", test.Props{
		"compatible": test.Strings("realtek,rtl8196e"),
	},
		test.Node("usbphy@1", test.Props{
			"compatible": test.Strings("vendor,usbphy"),
			"flag":       nil,
		}),
		test.Node("usbphy@0", test.Props{
			"compatible": test.Strings("vendor,usbphy-v2",
				"vendor,usbphy"),
		}),
		test.Node("bus", nil,
			test.Node("broken@0", test.Props{
				"compatible": test.Strings("vendor,broken"),
			}),
		),
	))
}

func TestRegister(t *testing.T) {
	assert := test.Assert{t}
	r := new(Registry)
	d := &Driver{Name: "x", Probe: func(*Device) error { return nil }}
	assert.Nil(r.Register(d))
	assert.Error(r.Register(d), syscall.EEXIST)
	assert.Error(r.Register(&Driver{Name: "y"}), syscall.EINVAL)
	assert.True(r.Driver("x") == d)
	assert.True(r.Driver("y") == nil)
}

func TestBind(t *testing.T) {
	assert := test.Assert{t}
	dt := tree(t)
	r := new(Registry)
	var probed, released []string
	assert.Nil(r.Register(&Driver{
		Name:       "usbphy",
		Compatible: []string{"vendor,usbphy"},
		Probe: func(dev *Device) error {
			probed = append(probed, dev.String())
			dev.Defer(func() {
				released = append(released, dev.String())
			})
			return nil
		},
	}))
	broken := errors.New("broken")
	assert.Nil(r.Register(&Driver{
		Name:       "broken",
		Compatible: []string{"vendor,broken"},
		Probe: func(dev *Device) error {
			dev.Defer(func() {
				released = append(released, "first")
			})
			dev.Defer(func() {
				released = append(released, "second")
			})
			return broken
		},
	}))

	devs, err := r.Bind(dt)
	assert.Error(err, broken)
	if !reflect.DeepEqual(probed, []string{"usbphy@0", "usbphy@1"}) {
		t.Fatal("probed:", probed)
	}
	if !reflect.DeepEqual(released, []string{"second", "first"}) {
		t.Fatal("released:", released)
	}
	assert.True(len(devs) == 2)
	assert.True(devs[0].Driver.Name == "usbphy")
	assert.True(devs[1].Present("flag"))
	assert.False(devs[0].Present("flag"))
	b, found := devs[0].Property("compatible")
	assert.True(found)
	assert.Equal(string(b), "vendor,usbphy-v2\x00vendor,usbphy\x00")

	released = nil
	for _, dev := range devs {
		dev.Detach()
		dev.Detach()
	}
	if !reflect.DeepEqual(released, []string{"usbphy@0", "usbphy@1"}) {
		t.Fatal("released:", released)
	}
}

func TestProbeMismatch(t *testing.T) {
	dt := tree(t)
	r := new(Registry)
	d := &Driver{
		Name:       "other",
		Compatible: []string{"vendor,other"},
		Probe: func(*Device) error {
			t.Fatal("probed")
			return nil
		},
	}
	err := r.Probe(d, NewDevice(dt, dt.RootNode.Children["usbphy@0"]))
	test.Assert{t}.Error(err, syscall.ENODEV)
}

func TestBindEmpty(t *testing.T) {
	_, err := new(Registry).Bind(&fdt.Tree{})
	test.Assert{t}.Error(err, syscall.ENODEV)
}
