// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

//go:build !linux

package regmap

import "errors"

const DevMem = "/dev/mem"

var errNoMmio = errors.New("mmio: not supported on this platform")

type Mmio struct{}

func Open(base, size uint32) (*Mmio, error) { return nil, errNoMmio }

func OpenFile(name string, base, size uint32) (*Mmio, error) {
	return nil, errNoMmio
}

func (*Mmio) Close() error                    { return nil }
func (*Mmio) Read(uint32) (uint32, error)     { return 0, errNoMmio }
func (*Mmio) Write(uint32, uint32) error      { return errNoMmio }
func (*Mmio) UpdateBits(_, _, _ uint32) error { return errNoMmio }
