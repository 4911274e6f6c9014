// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package test

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/platinasystems/fdt"
)

const (
	dtbMagic     = 0xd00dfeed
	dtbBeginNode = 0x1
	dtbEndNode   = 0x2
	dtbProp      = 0x3
	dtbEnd       = 0x9

	dtbHeaderSize = 10 * 4
	dtbRsvmapSize = 16
)

// Props of a fixture node by name.
type Props map[string][]byte

// Node returns a device tree node with the given properties and children.
func Node(name string, props Props, children ...*fdt.Node) *fdt.Node {
	n := &fdt.Node{
		Name:       name,
		Properties: map[string][]byte(props),
		Children:   make(map[string]*fdt.Node),
	}
	if n.Properties == nil {
		n.Properties = make(map[string][]byte)
	}
	for _, c := range children {
		n.Children[c.Name] = c
	}
	return n
}

// Cells encodes big-endian 32-bit property cells.
func Cells(v ...uint32) []byte {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.BigEndian.PutUint32(b[4*i:], x)
	}
	return b
}

// Strings encodes a NUL separated string list property.
func Strings(s ...string) []byte {
	var b []byte
	for _, x := range s {
		b = append(b, x...)
		b = append(b, 0)
	}
	return b
}

type dtbWriter struct {
	dt      bytes.Buffer
	strings bytes.Buffer
	offsets map[string]int
}

func (w *dtbWriter) cell(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.dt.Write(b[:])
}

func (w *dtbWriter) pad() {
	for w.dt.Len()%4 != 0 {
		w.dt.WriteByte(0)
	}
}

func (w *dtbWriter) nameOffset(name string) uint32 {
	off, found := w.offsets[name]
	if !found {
		off = w.strings.Len()
		w.strings.WriteString(name)
		w.strings.WriteByte(0)
		w.offsets[name] = off
	}
	return uint32(off)
}

func (w *dtbWriter) node(n *fdt.Node, root bool) {
	w.cell(dtbBeginNode)
	if !root {
		w.dt.WriteString(n.Name)
	}
	w.dt.WriteByte(0)
	w.pad()

	names := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := n.Properties[name]
		w.cell(dtbProp)
		w.cell(uint32(len(v)))
		w.cell(w.nameOffset(name))
		w.dt.Write(v)
		w.pad()
	}

	names = names[:0]
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w.node(n.Children[name], false)
	}
	w.cell(dtbEndNode)
}

// Dtb flattens the tree rooted at root into a version 17 device tree blob.
func Dtb(root *fdt.Node) []byte {
	w := &dtbWriter{offsets: make(map[string]int)}
	w.node(root, true)
	w.cell(dtbEnd)

	offStruct := dtbHeaderSize + dtbRsvmapSize
	offStrings := offStruct + w.dt.Len()
	total := offStrings + w.strings.Len()

	var b bytes.Buffer
	for _, v := range []uint32{
		dtbMagic,
		uint32(total),
		uint32(offStruct),
		uint32(offStrings),
		dtbHeaderSize,
		17,
		16,
		0,
		uint32(w.strings.Len()),
		uint32(w.dt.Len()),
	} {
		binary.Write(&b, binary.BigEndian, v)
	}
	b.Write(make([]byte, dtbRsvmapSize))
	b.Write(w.dt.Bytes())
	b.Write(w.strings.Bytes())
	return b.Bytes()
}

// Tree asserts that the flattened root parses and returns the parsed tree.
func (assert Assert) Tree(root *fdt.Node) *fdt.Tree {
	assert.Helper()
	t := &fdt.Tree{IsLittleEndian: false}
	assert.Nil(t.Parse(Dtb(root)))
	return t
}
