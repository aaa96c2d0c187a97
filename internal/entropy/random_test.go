package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededSequenceIsDeterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Float(), b.Float())
	}
}

func TestFloatStaysInUnitInterval(t *testing.T) {
	s := NewSeeded(7)
	for i := 0; i < 1000; i++ {
		f := s.Float()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
}

func TestNilSourceFallsBackToCrypto(t *testing.T) {
	var s *Source
	f := s.Float()
	assert.GreaterOrEqual(t, f, 0.0)
	assert.Less(t, f, 1.0)
	assert.True(t, s.Roll(1))
	assert.False(t, s.Roll(0))
}

func TestRollExtremes(t *testing.T) {
	s := NewSeeded(1)
	for i := 0; i < 100; i++ {
		assert.False(t, s.Roll(0))
		assert.True(t, s.Roll(1))
	}
}

func TestIntBetweenCoversRangeInclusive(t *testing.T) {
	s := NewSeeded(99)
	hit := map[int]bool{}
	for i := 0; i < 500; i++ {
		n := s.IntBetween(3, 7)
		require.GreaterOrEqual(t, n, 3)
		require.LessOrEqual(t, n, 7)
		hit[n] = true
	}
	assert.Len(t, hit, 5)

	assert.Equal(t, 4, s.IntBetween(4, 4))
}
