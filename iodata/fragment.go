// File: iodata/fragment.go
// Package iodata: cursored byte fragments for vector output and queueing.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package iodata

// Fragment is a byte window with a read cursor. The unread portion is the
// part a driver has not yet pushed to its channel.
type Fragment struct {
	buf []byte
	pos int
}

// NewFragment wraps buf without copying. The fragment's cursor starts at 0.
func NewFragment(buf []byte) *Fragment {
	return &Fragment{buf: buf}
}

// Len returns the total length of the fragment, consumed bytes included.
func (f *Fragment) Len() int { return len(f.buf) }

// Remaining returns the number of unread bytes.
func (f *Fragment) Remaining() int { return len(f.buf) - f.pos }

// Bytes returns the unread window. The slice aliases the fragment's backing
// array; callers must not retain it across Advance.
func (f *Fragment) Bytes() []byte { return f.buf[f.pos:] }

// Advance moves the read cursor forward by up to n bytes and returns the
// number of bytes actually consumed.
func (f *Fragment) Advance(n int) int {
	if n < 0 {
		return 0
	}
	if rem := f.Remaining(); n > rem {
		n = rem
	}
	f.pos += n
	return n
}
