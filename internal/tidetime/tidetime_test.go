package tidetime

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngmaloney/tide-terminal/internal/harmonics"
)

func TestToUTCWindow(t *testing.T) {
	n := NewNormalizer()

	w, err := n.ToUTCWindow("2015-03-16 00:00", "2015-03-17 00:00", "Pacific/Auckland")
	require.NoError(t, err)
	// NZDT is UTC+13 in March.
	assert.Equal(t, time.Date(2015, 3, 15, 11, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2015, 3, 16, 11, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, time.UTC, w.Start.Location())
}

func TestToUTCWindow_DefaultEnd(t *testing.T) {
	n := NewNormalizer(WithDefaultSpan(48 * time.Hour))
	w, err := n.ToUTCWindow("2024-07-01 06:00", "", "Europe/London")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 1, 5, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 48*time.Hour, w.Span())
	assert.Equal(t, 48*time.Hour, n.DefaultSpan())
}

func TestToUTCWindow_DefaultStartUsesClock(t *testing.T) {
	now := time.Date(2024, 1, 10, 20, 15, 42, 0, time.UTC)
	n := NewNormalizer(WithClock(clockwork.NewFakeClockAt(now)))

	w, err := n.ToUTCWindow("", "", "UTC")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 20, 15, 0, 0, time.UTC), w.Start)
	assert.Equal(t, DefaultSpan, w.Span())
}

func TestToUTCWindow_Errors(t *testing.T) {
	n := NewNormalizer()
	tests := []struct {
		name       string
		start, end string
		zone       string
		want       error
	}{
		{"bad start", "16/03/2015 00:00", "", "UTC", ErrInvalidTimeFormat},
		{"bad end", "2015-03-16 00:00", "2015-03-17", "UTC", ErrInvalidTimeFormat},
		{"seconds not accepted", "2015-03-16 00:00:00", "", "UTC", ErrInvalidTimeFormat},
		{"unknown zone", "2015-03-16 00:00", "", "Mars/Olympus", ErrUnknownTimeZone},
		{"empty zone", "2015-03-16 00:00", "", "", ErrUnknownTimeZone},
		{"end before start", "2015-03-16 00:00", "2015-03-15 00:00", "UTC", harmonics.ErrInvalidWindow},
		{"end equals start", "2015-03-16 00:00", "2015-03-16 00:00", "UTC", harmonics.ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.ToUTCWindow(tt.start, tt.end, tt.zone)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}

func TestLocalize(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"rounds down", time.Date(2015, 3, 15, 11, 4, 29, 999e6, time.UTC), "2015-03-16 00:04 NZDT"},
		{"half rounds up", time.Date(2015, 3, 15, 11, 4, 30, 0, time.UTC), "2015-03-16 00:05 NZDT"},
		{"rounds up across midnight", time.Date(2015, 3, 15, 10, 59, 45, 0, time.UTC), "2015-03-16 00:00 NZDT"},
		{"winter offset", time.Date(2015, 7, 1, 0, 0, 0, 0, time.UTC), "2015-07-01 12:00 NZST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Localize(tt.in, "Pacific/Auckland")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02 15:04 MST"))
			assert.Zero(t, got.Second())
		})
	}

	_, err := Localize(time.Now(), "Nowhere/Special")
	assert.ErrorIs(t, err, ErrUnknownTimeZone)
}
