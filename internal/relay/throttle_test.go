package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCardThrottleOncePerDay(t *testing.T) {
	throttle := NewCardThrottle()
	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, throttle.Allow(42, day1))
	assert.False(t, throttle.Allow(42, day1))
	assert.False(t, throttle.Allow(42, day1.Add(5*time.Hour)))

	// A different user is throttled independently.
	assert.True(t, throttle.Allow(43, day1))

	// The next calendar day allows exactly one more.
	day2 := day1.Add(24 * time.Hour)
	assert.True(t, throttle.Allow(42, day2))
	assert.False(t, throttle.Allow(42, day2))
}

func TestCardThrottleUsesUTCDate(t *testing.T) {
	throttle := NewCardThrottle()

	// 23:30 UTC and 00:30 UTC the next day are different calendar days even
	// though they are an hour apart.
	late := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	early := time.Date(2024, 3, 2, 0, 30, 0, 0, time.UTC)

	assert.True(t, throttle.Allow(42, late))
	assert.True(t, throttle.Allow(42, early))
}
