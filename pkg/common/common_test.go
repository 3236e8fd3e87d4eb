package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDint64Unique(t *testing.T) {
	seen := make(map[int64]struct{})
	for i := 0; i < 1000; i++ {
		id := UUIDint64()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "secret124"))
}

func TestParseDateAndDayBounds(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 15, d.Day())

	end := EndOfDay(d)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Second())
	assert.True(t, end.Before(d.AddDate(0, 0, 1)))
	assert.Equal(t, d, StartOfDay(end))

	_, err = ParseDate("not a date")
	assert.Error(t, err)
}

func TestIfEmptyStr(t *testing.T) {
	assert.Equal(t, "x", IfEmptyStr("  ", "x"))
	assert.Equal(t, "y", IfEmptyStr("y", "x"))
}
