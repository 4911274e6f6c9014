// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package regmap

import "sync"

// Mem is a Map held in ordinary memory. It stands in for hardware when
// simulating and records each UpdateBits call in order.
type Mem struct {
	mutex   sync.Mutex
	words   []uint32
	updates []Update
}

// NewMem returns a zeroed region of size bytes.
func NewMem(size uint32) *Mem {
	return &Mem{words: make([]uint32, size/4)}
}

func (m *Mem) size() uint32 { return uint32(len(m.words)) * 4 }

func (m *Mem) Read(offset uint32) (uint32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := check(offset, m.size()); err != nil {
		return 0, err
	}
	return m.words[offset/4], nil
}

func (m *Mem) Write(offset, value uint32) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := check(offset, m.size()); err != nil {
		return err
	}
	m.words[offset/4] = value
	return nil
}

func (m *Mem) UpdateBits(offset, mask, value uint32) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := check(offset, m.size()); err != nil {
		return err
	}
	m.updates = append(m.updates, Update{offset, mask, value})
	m.words[offset/4] = merge(m.words[offset/4], mask, value)
	return nil
}

// Trace returns a copy of the updates recorded since the last Reset.
func (m *Mem) Trace() []Update {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]Update(nil), m.updates...)
}

// Reset forgets recorded updates; register contents are kept.
func (m *Mem) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.updates = m.updates[:0]
}
