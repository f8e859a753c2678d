package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not parallel: At with far-away timestamps reseeds the monotonic source.
func TestNewIsUniqueAndSorted(t *testing.T) {
	prev := ""
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		s := New()
		require.Len(t, s, 26)
		assert.False(t, seen[s])
		seen[s] = true
		if prev != "" {
			assert.Less(t, prev, s)
		}
		prev = s
	}
}

func TestAtEncodesTime(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	s := At(ts)

	got, err := Time(s)
	require.NoError(t, err)
	assert.True(t, got.Equal(ts))
}

func TestAtGoingBackwards(t *testing.T) {
	t.Parallel()

	late := At(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	early := At(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, early, late)
}

func TestTimeInvalid(t *testing.T) {
	t.Parallel()

	_, err := Time("not-a-ulid")
	assert.Error(t, err)
}
