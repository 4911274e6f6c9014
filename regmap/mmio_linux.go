// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package regmap

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const DevMem = "/dev/mem"

// Mmio is a Map of physical memory mapped from /dev/mem, or from any file
// that supports mmap.
type Mmio struct {
	mutex sync.Mutex
	b     []byte
	// offset of base within page aligned b
	delta uint32
	size  uint32
}

// Open maps size bytes of physical address space at base.
func Open(base, size uint32) (*Mmio, error) {
	return OpenFile(DevMem, base, size)
}

func OpenFile(name string, base, size uint32) (*Mmio, error) {
	if base&3 != 0 {
		return nil, fmt.Errorf("%s: base %#x: %w", name, base, ErrAlign)
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pagesize := uint32(unix.Getpagesize())
	delta := base & (pagesize - 1)
	length := (delta + size + pagesize - 1) &^ (pagesize - 1)
	b, err := unix.Mmap(int(f.Fd()), int64(base-delta), int(length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%s: mmap %#x: %w", name, base, err)
	}
	return &Mmio{b: b, delta: delta, size: size}, nil
}

func (m *Mmio) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.b == nil {
		return nil
	}
	err := unix.Munmap(m.b)
	m.b = nil
	return err
}

func (m *Mmio) addr(offset uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(&m.b[m.delta+offset]))
}

func (m *Mmio) valid(offset uint32) error {
	if m.b == nil {
		return os.ErrClosed
	}
	return check(offset, m.size)
}

func (m *Mmio) Read(offset uint32) (uint32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.valid(offset); err != nil {
		return 0, err
	}
	return atomic.LoadUint32(m.addr(offset)), nil
}

func (m *Mmio) Write(offset, value uint32) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.valid(offset); err != nil {
		return err
	}
	atomic.StoreUint32(m.addr(offset), value)
	return nil
}

// UpdateBits skips the bus write if the masked value is already present.
func (m *Mmio) UpdateBits(offset, mask, value uint32) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.valid(offset); err != nil {
		return err
	}
	p := m.addr(offset)
	old := atomic.LoadUint32(p)
	if v := merge(old, mask, value); v != old {
		atomic.StoreUint32(p, v)
	}
	return nil
}
