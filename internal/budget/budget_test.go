package budget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctxfeed/internal/models"
)

func newProfile(window, output int) *models.Profile {
	return &models.Profile{
		ID:              "test-model",
		ContextWindow:   window,
		MaxOutputTokens: output,
		MessageOverhead: 4,
		CharsPerToken: map[models.ContentType]float64{
			models.ContentCode:       3,
			models.ContentText:       4,
			models.ContentStructured: 3,
			models.ContentFormatted:  4,
			models.ContentMixed:      3.5,
		},
	}
}

func TestNew(t *testing.T) {
	b, err := New(newProfile(10000, 2000), Options{})
	require.NoError(t, err)

	assert.Equal(t, 10000, b.TotalContextWindow)
	assert.Equal(t, 2000, b.ReservedForOutput)
	assert.Equal(t, 8000, b.AvailableForInput)
	assert.Equal(t, 0, b.Consumed)
	assert.Equal(t, 8000, b.Remaining)
	assert.Equal(t, LevelOK, b.WarningLevel)
	assert.Empty(t, b.Items)
}

func TestNew_ReserveOverride(t *testing.T) {
	reserve := 9500
	b, err := New(newProfile(10000, 2000), Options{ReservedForOutput: &reserve})
	require.NoError(t, err)
	assert.Equal(t, 500, b.AvailableForInput)

	reserve = 20000
	b, err = New(newProfile(10000, 2000), Options{ReservedForOutput: &reserve})
	require.NoError(t, err)
	assert.Equal(t, 0, b.AvailableForInput)

	reserve = -1
	_, err = New(newProfile(10000, 2000), Options{ReservedForOutput: &reserve})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestNew_InvalidProfile(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, models.ErrConfiguration)

	p := newProfile(0, 0)
	_, err = New(p, Options{})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestNew_InvalidThresholds(t *testing.T) {
	_, err := New(newProfile(1000, 0), Options{Thresholds: Thresholds{Warning: 0.9, Critical: 0.5}})
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = New(newProfile(1000, 0), Options{Thresholds: Thresholds{Warning: 0.5, Critical: 1.5}})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestAddItem_ConsumesEstimatePlusOverhead(t *testing.T) {
	b, err := New(newProfile(1000, 0), Options{})
	require.NoError(t, err)

	item := b.AddItem("note", strings.Repeat("a", 40), 2, models.ContentText)
	assert.Equal(t, 10, item.EstimatedTokens)
	assert.Equal(t, 40, item.CharCount)
	assert.True(t, item.Included)

	assert.Equal(t, 14, b.Consumed)
	assert.Equal(t, 986, b.Remaining)
	require.Len(t, b.Items, 1)
	assert.Equal(t, "note", b.Items[0].Label)
}

func TestAddItem_DetectsType(t *testing.T) {
	b, err := New(newProfile(1000, 0), Options{})
	require.NoError(t, err)

	item := b.AddItem("data", `{"a": 1, "b": [1, 2, 3]}`, 3, models.ContentAuto)
	assert.Equal(t, models.ContentStructured, item.ContentType)
}

func TestAddItem_MonotonicAndRemainingFloor(t *testing.T) {
	b, err := New(newProfile(50, 0), Options{})
	require.NoError(t, err)

	prev := b.Consumed
	for i := 0; i < 10; i++ {
		b.AddItem("chunk", strings.Repeat("x", 4*(i+1)), 1, models.ContentText)
		assert.GreaterOrEqual(t, b.Consumed, prev)
		want := b.AvailableForInput - b.Consumed
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, b.Remaining)
		assert.Equal(t, want, b.GetRemaining())
		assert.GreaterOrEqual(t, b.GetRemaining(), 0)
		prev = b.Consumed
	}
	assert.Equal(t, LevelExceeded, b.WarningLevel)
}

func TestWarningLevels(t *testing.T) {
	tests := []struct {
		name     string
		consumed int
		want     WarningLevel
	}{
		{"empty", 0, LevelOK},
		{"below warning", 74, LevelOK},
		{"at warning", 75, LevelWarning},
		{"below critical", 89, LevelWarning},
		{"at critical", 90, LevelCritical},
		{"just below full", 99, LevelCritical},
		{"full", 100, LevelExceeded},
		{"over", 130, LevelExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProfile(100, 0)
			p.MessageOverhead = 0
			b, err := New(p, Options{})
			require.NoError(t, err)
			if tt.consumed > 0 {
				b.AddEstimated("x", tt.consumed*4, tt.consumed, 1, models.ContentText)
			}
			assert.Equal(t, tt.want, b.WarningLevel)
		})
	}
}

func TestWarningLevels_ZeroAvailable(t *testing.T) {
	reserve := 100
	b, err := New(newProfile(100, 0), Options{ReservedForOutput: &reserve})
	require.NoError(t, err)
	assert.Equal(t, LevelOK, b.WarningLevel)

	b.AddItem("system", "hello", 1, models.ContentText)
	assert.Equal(t, LevelExceeded, b.WarningLevel)
	assert.Equal(t, 0, b.Remaining)
	assert.Equal(t, 1.0, b.Utilization())
}

func TestCanFit(t *testing.T) {
	p := newProfile(20, 0)
	b, err := New(p, Options{})
	require.NoError(t, err)

	assert.True(t, b.CanFit(strings.Repeat("a", 80), models.ContentText))
	assert.False(t, b.CanFit(strings.Repeat("a", 84), models.ContentText))
	assert.True(t, b.CanFitTokens(20))
	assert.False(t, b.CanFitTokens(21))
}

func TestRecordExcluded(t *testing.T) {
	b, err := New(newProfile(1000, 0), Options{})
	require.NoError(t, err)

	b.RecordExcluded("big", 4000, 1000, 4, models.ContentText)
	assert.Equal(t, 0, b.Consumed)
	require.Len(t, b.Items, 1)
	assert.False(t, b.Items[0].Included)
	assert.Equal(t, 0, b.IncludedCount())
}

func TestSnapshot_IsIndependent(t *testing.T) {
	b, err := New(newProfile(1000, 0), Options{})
	require.NoError(t, err)
	b.AddItem("one", "hello world", 1, models.ContentText)

	snap := b.Snapshot()
	b.AddItem("two", "more text", 1, models.ContentText)

	assert.Len(t, snap.Items, 1)
	assert.Len(t, b.Items, 2)
	assert.Less(t, snap.Consumed, b.Consumed)
}
