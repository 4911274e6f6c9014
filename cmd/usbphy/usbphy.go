// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package usbphy provides a command to power the SoC USB PHY described by
// the machine's device tree.
package usbphy

import (
	"fmt"
	"io"
	"os"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"
	"github.com/platinasystems/redis/publisher"
	"github.com/platinasystems/usbphy/lang"
	"github.com/platinasystems/usbphy/phy"
	"github.com/platinasystems/usbphy/phy/realtek"
	"github.com/platinasystems/usbphy/platform"
	"github.com/platinasystems/usbphy/syscon"
)

var File = "/boot/linux.dtb"

type Command struct {
	// Stdout, if nil, is os.Stdout
	Stdout io.Writer
}

func (Command) String() string { return "usbphy" }

func (Command) Usage() string {
	return "usbphy [-f DTB] [-sim] [-publish] on|off|show"
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "power the SoC USB PHY on or off",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	The usbphy command binds the USB PHY nodes of the device tree and
	powers them on or off through the system controller registers.
	  on	enable the PHY ports, clocks and host IP then wait for the
		link to settle
	  off	disable the PHY
	  show	print each PHY with its state and registers

OPTIONS
	-f DTB	device tree blob, default /boot/linux.dtb
	-sim	simulate the system controller in memory
	-publish
		publish usbphy.NAME.state to redis`,
	}
}

func (c Command) Main(args ...string) error {
	flag, args := flags.New(args, "-sim", "-publish")
	parm, args := parms.New(args, "-f")
	if len(args) == 0 {
		return fmt.Errorf("COMMAND: missing")
	}
	if len(args) > 1 {
		return fmt.Errorf("%v: unexpected", args[1:])
	}
	op := args[0]
	switch op {
	case "on", "off", "show":
	default:
		return fmt.Errorf("%s: unknown", op)
	}
	fn := parm.ByName["-f"]
	if len(fn) == 0 {
		fn = File
	}

	b, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	t := &fdt.Tree{Debug: false, IsLittleEndian: false}
	if err = t.Parse(b); err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}

	open := syscon.Mmio
	if flag.ByName["-sim"] {
		open = syscon.Sim
	}
	phys := new(phy.Registry)
	if flag.ByName["-publish"] {
		pub, err := publisher.New()
		if err != nil {
			return err
		}
		phys.Notify(func(p *phy.Phy, s phy.State) {
			pub.Print("usbphy.", p.Name, ".state: ", s)
		})
	}
	drivers := new(platform.Registry)
	if err = realtek.Register(drivers, syscon.New(open), phys); err != nil {
		return err
	}
	devs, err := drivers.Bind(t)
	for _, dev := range devs {
		defer dev.Detach()
	}
	if len(devs) == 0 {
		if err != nil {
			return err
		}
		return fmt.Errorf("%s: no USB PHY", fn)
	}
	if err != nil {
		log.Print("warn", c, ": ", err)
	}

	w := c.Stdout
	if w == nil {
		w = os.Stdout
	}
	for _, p := range phys.All() {
		switch op {
		case "on":
			err = p.PowerOn()
		case "off":
			err = p.PowerOff()
		case "show":
			fmt.Fprintln(w, p.Name, p.Id, p.State())
			err = p.Dump(w)
		}
		if err != nil {
			return err
		}
		if op != "show" {
			fmt.Fprintln(w, p.Name, p.State())
		}
	}
	return nil
}
