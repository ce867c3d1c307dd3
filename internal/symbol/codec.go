// Package symbol implements the combinatorial codec at the heart of the
// acoustic modem: a bijection between a 64-bit symbol value and an
// unordered choice of K channels out of N, ranked in lexicographic
// order of the ascending channel set.
package symbol

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOutOfRange is returned by Encode when the symbol value exceeds the
// codec's capacity, C(N,K).
var ErrOutOfRange = errors.New("symbol: value exceeds codec capacity")

// ErrBadInput is returned by Decode when the channel set is the wrong
// length, contains a channel outside [0,N), or contains a duplicate.
var ErrBadInput = errors.New("symbol: invalid channel set")

// Codec ranks and unranks unordered K-subsets of [0,N).
type Codec struct {
	n, k     int
	capacity uint64
}

// New builds a codec that maps symbol values to choices of k distinct
// channels out of n.
func New(n, k int) *Codec {
	return &Codec{n: n, k: k, capacity: binomial(n, k)}
}

// Capacity returns C(N,K), the number of distinct symbol values this
// codec can represent.
func (c *Codec) Capacity() uint64 { return c.capacity }

// Encode returns the canonical (ascending) channel set for v. Greedily
// reconstructs each slot: for slot j, walk candidate channels upward
// from the previous slot's value, subtracting C(N-c-1, K-j-1) from the
// remaining rank as long as it fits, and emit the channel where it
// stops fitting.
func (c *Codec) Encode(v uint64) ([]int, error) {
	if v >= c.capacity {
		return nil, fmt.Errorf("%w: %d >= %d", ErrOutOfRange, v, c.capacity)
	}

	channels := make([]int, c.k)
	remaining := v
	prev := -1
	for slot := 0; slot < c.k; slot++ {
		lowerOrder := c.k - slot - 1
		ch := prev + 1
		for {
			count := binomial(c.n-ch-1, lowerOrder)
			if count > remaining {
				break
			}
			remaining -= count
			ch++
		}
		channels[slot] = ch
		prev = ch
	}
	return channels, nil
}

// Decode returns the symbol value for an unordered channel set, sorting
// it ascending first. Returns ErrBadInput if the set is the wrong size,
// has a channel outside [0,N), or contains a duplicate.
func (c *Codec) Decode(channels []int) (uint64, error) {
	if len(channels) != c.k {
		return 0, fmt.Errorf("%w: expected %d channels, got %d", ErrBadInput, c.k, len(channels))
	}

	sorted := append([]int(nil), channels...)
	sort.Ints(sorted)

	prev := -1
	for _, ch := range sorted {
		if ch < 0 || ch >= c.n || ch <= prev {
			return 0, fmt.Errorf("%w: %v", ErrBadInput, channels)
		}
		prev = ch
	}

	var v uint64
	prev = -1
	for slot, ch := range sorted {
		lowerOrder := c.k - slot - 1
		for cand := prev + 1; cand < ch; cand++ {
			v += binomial(c.n-cand-1, lowerOrder)
		}
		prev = ch
	}
	return v, nil
}

// binomial computes C(n,r), the number of ways to choose r items from
// n, via the multiplicative formula. The running product is multiplied
// before it is divided at each step so the intermediate values stay
// exact integers for the small arguments this codec uses (n <= 64).
func binomial(n, r int) uint64 {
	if n < 0 || r < 0 || r > n {
		return 0
	}
	if r == 0 || r == n {
		return 1
	}
	if r > n-r {
		r = n - r
	}

	result := uint64(1)
	for i := 1; i <= r; i++ {
		result = result * uint64(n-r+i) / uint64(i)
	}
	return result
}
