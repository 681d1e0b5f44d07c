package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Bitmap is a growable set of small non-negative ints,
	// symbol ids or instruction indexes.
	Bitmap struct {
		b  []uint64
		b0 [1]uint64
	}
)

func MakeBitmap(n int) Bitmap {
	s := Bitmap{}
	s.b = s.b0[:]

	if n = (n + 63) / 64; n > len(s.b) {
		s.b = make([]uint64, n)
	}

	return s
}

// Set adds i and reports whether it was already there.
func (s *Bitmap) Set(i int) (was bool) {
	w, j := split(i)

	for w >= len(s.b) {
		s.b = append(s.b, 0)
	}

	was = s.b[w]&(1<<j) != 0
	s.b[w] |= 1 << j

	return was
}

func (s *Bitmap) IsSet(i int) bool {
	w, j := split(i)

	return w < len(s.b) && s.b[w]&(1<<j) != 0
}

func (s *Bitmap) Size() (n int) {
	for _, x := range s.b {
		n += bits.OnesCount64(x)
	}

	return n
}

// Range calls f for every element in increasing order until f returns false.
func (s *Bitmap) Range(f func(i int) bool) {
	for w, x := range s.b {
		for x != 0 {
			j := bits.TrailingZeros64(x)
			x &^= 1 << j

			if !f(w*64 + j) {
				return
			}
		}
	}
}

func (s Bitmap) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(i int) bool {
		b = e.AppendInt(b, i)

		return true
	})

	return e.AppendBreak(b)
}

func split(i int) (w, j int) {
	return i / 64, i % 64
}
