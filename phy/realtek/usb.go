// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package realtek drives the two port USB PHY of the Realtek RTL819x SoC
// through its system controller registers.
package realtek

import (
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/platinasystems/log"
	"github.com/platinasystems/usbphy/phy"
	"github.com/platinasystems/usbphy/platform"
	"github.com/platinasystems/usbphy/regmap"
	"github.com/platinasystems/usbphy/syscon"
)

const (
	DriverName = "realtek-usb-phy"
	Compatible = "realtek,rtl819x-usbphy"

	// phandle of the system controller
	PropSysctl = "realtek,sysctl"
	// boolean, port 0 and 1 both enabled, phy1 not forced to host mode
	PropOnePortSel = "realtek,oneportsel"
)

// System controller registers.
const (
	RegClkManage = 0x10
	RegUsbSie    = 0x34
	RegUsbPhy    = 0x90
)

// USB_SIE
const (
	SieUtmiSuspend    = 1 << 11 // s_utmi_suspend0
	SiePhyEnable      = 1 << 12
	SiePgbndryDisable = 1 << 17
	SiePhy1HostMode   = 1 << 18
)

// CLK_MANAGE
const (
	ClkLx1    = 1<<12 | 1<<13
	ClkLx2    = 1<<19 | 1<<20
	ClkHostIp = 1 << 21
	ClkUsb    = ClkLx1 | ClkLx2 | ClkHostIp
)

// USB_PHY has an 11 bit field per port starting at bit 8.
const (
	portShift = 11

	phyEnable = 1 << 8  // USBPHY_EN
	phyReset  = 1 << 9  // usbphy_reset, active high
	phyActive = 1 << 10 // active_usbphyt

	// Power off clears USBPHY_EN of port 0 and bit 19 only, the
	// port 1 reset and enable bits stay as they were.
	phyOff = 1<<8 | 1<<19
)

// PHY link settle time after power on.
const Settle = 100 * time.Millisecond

func PortEnable(port int) uint32 { return phyEnable << (port * portShift) }
func PortReset(port int) uint32  { return phyReset << (port * portShift) }
func PortActive(port int) uint32 { return phyActive << (port * portShift) }

type UsbPhy struct {
	sysctl     regmap.Map
	oneportsel bool
	phy        *phy.Phy
}

// New returns a phy context over an already resolved system controller.
func New(sysctl regmap.Map, oneportsel bool) *UsbPhy {
	return &UsbPhy{sysctl: sysctl, oneportsel: oneportsel}
}

func (u *UsbPhy) OnePortSel() bool { return u.oneportsel }

// Phy is the framework handle, nil unless probed.
func (u *UsbPhy) Phy() *phy.Phy { return u.phy }

func (u *UsbPhy) enable(port int) error {
	en, rst, act := PortEnable(port), PortReset(port), PortActive(port)
	if err := u.sysctl.UpdateBits(RegUsbPhy, en|rst, en|rst); err != nil {
		return err
	}
	return u.sysctl.UpdateBits(RegUsbPhy, rst|act, act)
}

func (u *UsbPhy) PowerOn() error {
	host := uint32(SiePhy1HostMode)
	if u.oneportsel {
		host = 0
	}
	if err := u.sysctl.UpdateBits(RegUsbSie, SiePhy1HostMode, host); err != nil {
		return err
	}
	sie := uint32(SieUtmiSuspend | SiePhyEnable | SiePgbndryDisable)
	if err := u.sysctl.UpdateBits(RegUsbSie, sie, sie); err != nil {
		return err
	}
	ports := []int{1}
	if u.oneportsel {
		ports = []int{0, 1}
	}
	for _, port := range ports {
		if err := u.enable(port); err != nil {
			return err
		}
	}
	if err := u.sysctl.UpdateBits(RegClkManage, ClkUsb, ClkUsb); err != nil {
		return err
	}
	time.Sleep(Settle)
	return nil
}

func (u *UsbPhy) PowerOff() error {
	if err := u.sysctl.UpdateBits(RegClkManage, ClkUsb, 0); err != nil {
		return err
	}
	if err := u.sysctl.UpdateBits(RegUsbPhy, phyOff, 0); err != nil {
		return err
	}
	return u.sysctl.UpdateBits(RegUsbSie, SiePhyEnable, 0)
}

func (u *UsbPhy) Dump(w io.Writer) error {
	mode := "two-port"
	if u.oneportsel {
		mode = "one-port"
	}
	fmt.Fprintln(w, "mode:", mode)
	for _, r := range []struct {
		name   string
		offset uint32
	}{
		{"clk_manage", RegClkManage},
		{"usb_sie", RegUsbSie},
		{"usb_phy", RegUsbPhy},
	} {
		v, err := u.sysctl.Read(r.offset)
		if err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		fmt.Fprintf(w, "%s: 0x%08x\n", r.name, v)
	}
	return nil
}

// Driver binds RTL819x USB PHY nodes, resolving the system controller with
// Syscon and registering each phy with Phys.
type Driver struct {
	Syscon *syscon.Syscon
	Phys   *phy.Registry
}

func (d *Driver) Probe(dev *platform.Device) error {
	if !syscon.IsCompatible(dev.Tree, dev.Node, Compatible) {
		return syscall.ENODEV
	}
	sysctl, err := d.Syscon.LookupByPhandle(dev.Tree, dev.Node, PropSysctl)
	if err != nil {
		log.Print("err", dev, ": failed to get sysctl registers: ", err)
		return err
	}
	u := New(sysctl, dev.Present(PropOnePortSel))
	if u.phy, err = d.Phys.Create(dev, u); err != nil {
		log.Print("err", dev, ": failed to create PHY: ", err)
		return err
	}
	err = d.Phys.RegisterProvider(dev, dev.Node, phy.SimpleXlate)
	if err != nil {
		log.Print("err", dev, ": failed to register PHY provider: ", err)
		return err
	}
	return nil
}

// Register the driver with a platform registry.
func Register(r *platform.Registry, sc *syscon.Syscon, phys *phy.Registry) error {
	d := &Driver{Syscon: sc, Phys: phys}
	return r.Register(&platform.Driver{
		Name:       DriverName,
		Compatible: []string{Compatible},
		Probe:      d.Probe,
	})
}
