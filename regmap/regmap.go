// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package regmap provides masked read-modify-write access to banks of 32-bit
// registers that may be shared by several drivers.
package regmap

import (
	"errors"
	"fmt"
)

var (
	ErrRange = errors.New("offset out of range")
	ErrAlign = errors.New("offset not 32-bit aligned")
)

// A Map is a register region addressed by byte offset. Implementations
// serialize UpdateBits so that a masked update is atomic with respect to
// every other user of the same Map.
type Map interface {
	Read(offset uint32) (uint32, error)
	Write(offset, value uint32) error
	// UpdateBits changes only the bits set in mask to the corresponding
	// bits of value.
	UpdateBits(offset, mask, value uint32) error
}

// Update is one recorded UpdateBits call.
type Update struct {
	Offset, Mask, Value uint32
}

func (u Update) String() string {
	return fmt.Sprintf("%#02x: mask 0x%08x value 0x%08x",
		u.Offset, u.Mask, u.Value)
}

// Bits returns a mask with each of the given bit numbers set.
func Bits(n ...uint) (mask uint32) {
	for _, i := range n {
		mask |= 1 << i
	}
	return
}

// merge the masked value into old
func merge(old, mask, value uint32) uint32 {
	return old&^mask | value&mask
}

func check(offset, size uint32) error {
	if offset&3 != 0 {
		return fmt.Errorf("%#x: %w", offset, ErrAlign)
	}
	if offset >= size || size-offset < 4 {
		return fmt.Errorf("%#x: %w", offset, ErrRange)
	}
	return nil
}
