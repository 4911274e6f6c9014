// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package platform

import (
	"sync"

	"github.com/platinasystems/fdt"
)

// Device is a device tree node bound, or being bound, to a Driver.
type Device struct {
	Tree   *fdt.Tree
	Node   *fdt.Node
	Driver *Driver

	mutex   sync.Mutex
	cleanup []func()
}

func NewDevice(t *fdt.Tree, n *fdt.Node) *Device {
	return &Device{Tree: t, Node: n}
}

func (dev *Device) String() string { return dev.Node.Name }

// DeviceNode is the node phys and other providers are registered under.
func (dev *Device) DeviceNode() *fdt.Node { return dev.Node }

// Property returns the raw value of the named property.
func (dev *Device) Property(name string) ([]byte, bool) {
	b, found := dev.Node.Properties[name]
	return b, found
}

// Present reports a boolean property, true if it exists at all.
func (dev *Device) Present(name string) bool {
	_, found := dev.Node.Properties[name]
	return found
}

// Defer f until the device is detached or fails its probe.
func (dev *Device) Defer(f func()) {
	dev.mutex.Lock()
	defer dev.mutex.Unlock()
	dev.cleanup = append(dev.cleanup, f)
}

// Detach releases managed resources, last deferred first.
func (dev *Device) Detach() {
	dev.mutex.Lock()
	cleanup := dev.cleanup
	dev.cleanup = nil
	dev.mutex.Unlock()
	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
}
