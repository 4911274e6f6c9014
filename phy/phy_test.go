// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package phy

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/usbphy/internal/test"
	uuid "github.com/satori/go.uuid"
)

type owner struct {
	name    string
	node    *fdt.Node
	cleanup []func()
}

func (o *owner) String() string        { return o.name }
func (o *owner) DeviceNode() *fdt.Node { return o.node }
func (o *owner) Defer(f func())        { o.cleanup = append(o.cleanup, f) }

func (o *owner) detach() {
	for i := len(o.cleanup) - 1; i >= 0; i-- {
		o.cleanup[i]()
	}
	o.cleanup = nil
}

type ops struct {
	calls []string
	err   error
}

func (o *ops) PowerOn() error {
	o.calls = append(o.calls, "on")
	return o.err
}

func (o *ops) PowerOff() error {
	o.calls = append(o.calls, "off")
	return o.err
}

type dumper struct{ ops }

func (*dumper) Dump(w io.Writer) error {
	_, err := fmt.Fprintln(w, "regs")
	return err
}

func TestCreate(t *testing.T) {
	assert := test.Assert{t}
	r := new(Registry)
	a, b := &owner{name: "b"}, &owner{name: "a"}
	pa, err := r.Create(a, new(ops))
	assert.Nil(err)
	pb, err := r.Create(b, new(ops))
	assert.Nil(err)
	assert.False(uuid.Equal(pa.Id, pb.Id))
	assert.False(uuid.Equal(pa.Id, uuid.Nil))
	assert.Equal(pa.String(), "b")

	_, err = r.Create(&owner{name: "a"}, new(ops))
	assert.Error(err, syscall.EEXIST)

	all := r.All()
	assert.True(len(all) == 2 && all[0] == pb && all[1] == pa)

	p, err := r.Lookup("b")
	assert.Nil(err)
	assert.True(p == pa)

	a.detach()
	_, err = r.Lookup("b")
	assert.Error(err, syscall.ENODEV)
	assert.True(len(r.All()) == 1)
}

func TestPower(t *testing.T) {
	assert := test.Assert{t}
	r := new(Registry)
	var notes []string
	r.Notify(func(p *Phy, s State) {
		notes = append(notes, p.Name+" "+s.String()+" "+p.State().String())
	})
	o := new(ops)
	p, err := r.Create(&owner{name: "usbphy"}, o)
	assert.Nil(err)
	assert.True(p.State() == Unknown)
	assert.True(p.Ops() == Ops(o))

	assert.Nil(p.PowerOn())
	assert.Nil(p.PowerOn())
	assert.True(p.State() == On)
	assert.Nil(p.PowerOff())
	assert.True(p.State() == Off)
	assert.Equal(strings.Join(o.calls, " "), "on on off")
	assert.Equal(strings.Join(notes, ","),
		"usbphy on on,usbphy on on,usbphy off off")
}

func TestPowerError(t *testing.T) {
	assert := test.Assert{t}
	r := new(Registry)
	notified := false
	r.Notify(func(*Phy, State) { notified = true })
	failed := errors.New("failed")
	p, err := r.Create(&owner{name: "usbphy"}, &ops{err: failed})
	assert.Nil(err)
	err = p.PowerOn()
	assert.Error(err, failed)
	assert.Equal(err.Error(), "usbphy: power on: failed")
	assert.True(p.State() == Unknown)
	assert.False(notified)
}

func TestDump(t *testing.T) {
	assert := test.Assert{t}
	r := new(Registry)
	var sb strings.Builder
	p, _ := r.Create(&owner{name: "plain"}, new(ops))
	assert.Nil(p.Dump(&sb))
	assert.Equal(sb.String(), "")
	p, _ = r.Create(&owner{name: "dumper"}, new(dumper))
	assert.Nil(p.Dump(&sb))
	assert.Equal(sb.String(), "regs\n")
}
