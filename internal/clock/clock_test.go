package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	now := System{Location: loc}.Now()
	assert.Equal(t, loc, now.Location())
	assert.WithinDuration(t, time.Now(), now, 5*time.Second)
}

func TestFixed(t *testing.T) {
	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	assert.Equal(t, start, c.Now())

	c.Advance(30 * time.Minute)
	assert.Equal(t, start.Add(30*time.Minute), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}
