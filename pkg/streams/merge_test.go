package streams

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// descending comparer used throughout: audit streams arrive newest-first.
func desc(a, b int) int { return b - a }

func TestMergeSorted_Empty(t *testing.T) {
	assert.Empty(t, MergeSorted[int](nil, desc))
	assert.Empty(t, MergeSorted([][]int{}, desc))
	assert.Empty(t, MergeSorted([][]int{{}, {}}, desc))
}

func TestMergeSorted_SingleStream(t *testing.T) {
	out := MergeSorted([][]int{{9, 5, 1}}, desc)
	assert.Equal(t, []int{9, 5, 1}, out)
}

func TestMergeSorted_SkipsEmptyStreams(t *testing.T) {
	out := MergeSorted([][]int{{}, {8, 4}, {}, {6, 2}}, desc)
	assert.Equal(t, []int{8, 6, 4, 2}, out)
}

func TestMergeSorted_TieGoesToEarlierStream(t *testing.T) {
	type item struct {
		key    int
		stream string
	}
	cmp := func(a, b item) int { return b.key - a.key }

	out := MergeSorted([][]item{
		{{5, "first"}},
		{{5, "second"}},
	}, cmp)

	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].stream)
	assert.Equal(t, "second", out[1].stream)
}

// Property: for any N pre-sorted descending streams, the output length equals
// the sum of input lengths and the output remains sorted descending.
func TestMergeSorted_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 100; trial++ {
		n := rng.Intn(6)
		streams := make([][]int, n)
		total := 0
		for i := range streams {
			m := rng.Intn(10)
			total += m
			s := make([]int, m)
			for j := range s {
				s[j] = rng.Intn(50)
			}
			sort.Sort(sort.Reverse(sort.IntSlice(s)))
			streams[i] = s
		}

		out := MergeSorted(streams, desc)
		require.Len(t, out, total)
		assert.True(t, sort.SliceIsSorted(out, func(i, j int) bool {
			return out[i] > out[j]
		}), "merged output must stay sorted descending")
	}
}
