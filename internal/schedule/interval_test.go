package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(h, m int) time.Time {
	return time.Date(2026, time.March, 2, h, m, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name   string
		aStart time.Time
		aEnd   time.Time
		bStart time.Time
		bEnd   time.Time
		want   bool
	}{
		{"identical intervals", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"partial overlap", at(9, 0), at(10, 0), at(9, 30), at(10, 30), true},
		{"contained", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"back to back, a before b", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"back to back, b before a", at(10, 0), at(11, 0), at(9, 0), at(10, 0), false},
		{"disjoint", at(9, 0), at(10, 0), at(14, 0), at(15, 0), false},
		{"one minute overlap", at(9, 0), at(10, 1), at(10, 0), at(11, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			// Overlap is symmetric.
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains(at(9, 0), at(17, 0), at(9, 0), at(17, 0)))
	assert.True(t, Contains(at(9, 0), at(17, 0), at(10, 0), at(10, 30)))
	assert.False(t, Contains(at(9, 0), at(17, 0), at(8, 30), at(9, 30)))
	assert.False(t, Contains(at(9, 0), at(17, 0), at(16, 30), at(17, 30)))
	assert.False(t, Contains(at(9, 0), at(17, 0), at(8, 0), at(18, 0)))
}

func TestIntervalIsZero(t *testing.T) {
	assert.True(t, Interval{}.IsZero())
	assert.True(t, Interval{Start: at(10, 0), End: at(10, 0)}.IsZero())
	assert.True(t, Interval{Start: at(11, 0), End: at(10, 0)}.IsZero())
	assert.False(t, Interval{Start: at(10, 0), End: at(10, 1)}.IsZero())
}

func TestIntervalClip(t *testing.T) {
	iv := Interval{Start: at(9, 0), End: at(17, 0)}

	t.Run("zero bounds leave interval untouched", func(t *testing.T) {
		assert.Equal(t, iv, iv.Clip(time.Time{}, time.Time{}))
	})

	t.Run("clips both edges", func(t *testing.T) {
		got := iv.Clip(at(10, 0), at(12, 0))
		assert.Equal(t, Interval{Start: at(10, 0), End: at(12, 0)}, got)
	})

	t.Run("bounds outside interval are no-ops", func(t *testing.T) {
		got := iv.Clip(at(8, 0), at(18, 0))
		assert.Equal(t, iv, got)
	})

	t.Run("disjoint bound empties the interval", func(t *testing.T) {
		got := iv.Clip(at(18, 0), time.Time{})
		assert.True(t, got.IsZero())
	})
}
