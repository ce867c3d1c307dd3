package symbol

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const (
	refN = 13
	refK = 3
)

func TestCapacity_ReferenceValues(t *testing.T) {
	c := New(refN, refK)
	assert.EqualValues(t, 286, c.Capacity())
}

func TestEncode_BoundaryValues(t *testing.T) {
	c := New(refN, refK)

	cases := []struct {
		v    uint64
		want []int
	}{
		{0, []int{0, 1, 2}},
		{1, []int{0, 1, 3}},
		{285, []int{10, 11, 12}},
	}
	for _, tc := range cases {
		got, err := c.Encode(tc.v)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestEncode_OutOfRange(t *testing.T) {
	c := New(refN, refK)

	_, err := c.Encode(c.Capacity() - 1)
	require.NoError(t, err)

	_, err = c.Encode(c.Capacity())
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecode_BadInput(t *testing.T) {
	c := New(refN, refK)

	_, err := c.Decode([]int{0, 1})
	assert.ErrorIs(t, err, ErrBadInput)

	_, err = c.Decode([]int{0, 1, 1})
	assert.ErrorIs(t, err, ErrBadInput)

	_, err = c.Decode([]int{0, 1, refN})
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestRoundTrip_AllReferenceValues(t *testing.T) {
	c := New(refN, refK)
	for v := uint64(0); v < c.Capacity(); v++ {
		channels, err := c.Encode(v)
		require.NoError(t, err)

		got, err := c.Decode(channels)
		require.NoError(t, err)
		assert.Equal(t, v, got, "round trip mismatch for v=%d", v)
	}
}

// TestProperty_EncodeDecodeRoundTrip checks decode(encode(v)) == v for
// arbitrary valid symbol values across arbitrary (n,k) plans.
func TestProperty_EncodeDecodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 16).Draw(rt, "n")
		k := rapid.IntRange(1, n).Draw(rt, "k")
		c := New(n, k)
		if c.Capacity() == 0 {
			return
		}

		v := rapid.Uint64Range(0, c.Capacity()-1).Draw(rt, "v")
		channels, err := c.Encode(v)
		require.NoError(rt, err)
		got, err := c.Decode(channels)
		require.NoError(rt, err)
		assert.Equal(rt, v, got)
	})
}

// TestProperty_EncodeIsSortedAscending checks that Encode always
// returns a strictly ascending channel set within [0,N).
func TestProperty_EncodeIsSortedAscending(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 16).Draw(rt, "n")
		k := rapid.IntRange(1, n).Draw(rt, "k")
		c := New(n, k)
		if c.Capacity() == 0 {
			return
		}

		v := rapid.Uint64Range(0, c.Capacity()-1).Draw(rt, "v")
		channels, err := c.Encode(v)
		require.NoError(rt, err)

		for i, ch := range channels {
			assert.GreaterOrEqual(rt, ch, 0)
			assert.Less(rt, ch, n)
			if i > 0 {
				assert.Greater(rt, ch, channels[i-1])
			}
		}
	})
}

// TestProperty_DecodeEncodeRoundTrip checks encode(decode(S)) == S for
// arbitrary canonical channel sets.
func TestProperty_DecodeEncodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := New(refN, refK)

	for i := 0; i < 500; i++ {
		perm := rng.Perm(refN)[:refK]
		channels := append([]int(nil), perm...)
		sortInts(channels)

		v, err := c.Decode(channels)
		require.NoError(t, err)

		back, err := c.Encode(v)
		require.NoError(t, err)
		assert.Equal(t, channels, back)
	}
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
