// File: iodata/iodata.go
// Package iodata models the runtime's hierarchical byte-sequence values:
// the terms a port emits to its owning process, and the cursored byte
// fragments queued for output.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package iodata

// Term is a value deliverable to a process mailbox. The closed set is
// Nil, Binary, Text and *BinList; nothing else implements it.
type Term interface {
	// Flat renders the term as one contiguous byte string.
	Flat() []byte

	term()
}

// Nil is the empty-sequence marker.
var Nil Term = nilTerm{}

type nilTerm struct{}

func (nilTerm) Flat() []byte { return nil }
func (nilTerm) term()        {}

// Binary is an immutable flat binary value.
type Binary []byte

func (b Binary) Flat() []byte { return b }
func (Binary) term()          {}

// Text is a flat textual byte sequence (the runtime's string flavor).
type Text string

func (t Text) Flat() []byte { return []byte(t) }
func (Text) term()          {}

// BinList is a two-part value: fixed header bytes followed by a tail term.
type BinList struct {
	Header []byte
	Tail   Term
}

func (l *BinList) Flat() []byte {
	out := make([]byte, 0, len(l.Header))
	out = append(out, l.Header...)
	if l.Tail != nil {
		out = append(out, l.Tail.Flat()...)
	}
	return out
}

func (*BinList) term() {}
