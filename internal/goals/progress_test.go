package goals_test

import (
	"testing"

	"github.com/hugh/go-referral/internal/goals"
	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name    string
		raw     int
		target  int
		current int
		percent int
	}{
		{"negative floored", -5, 10, 0, 0},
		{"over target capped", 15, 10, 10, 100},
		{"half way", 5, 10, 5, 50},
		{"exact", 10, 10, 10, 100},
		{"round half up", 1, 8, 1, 13},
		{"round down", 1, 3, 1, 33},
		{"zero target", 5, 0, 0, 0},
		{"almost done stays below 100", 199, 200, 199, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := goals.Progress(tt.raw, tt.target)
			assert.Equal(t, tt.current, r.Current)
			assert.Equal(t, tt.percent, r.Percent)
		})
	}
}

func TestProgress_Properties(t *testing.T) {
	for _, target := range []int{1, 3, 7, 10, 100, 201, 1000} {
		prev := -1
		for raw := -10; raw <= target+10; raw++ {
			r := goals.Progress(raw, target)

			assert.GreaterOrEqual(t, r.Percent, 0)
			assert.LessOrEqual(t, r.Percent, 100)
			assert.GreaterOrEqual(t, r.Percent, prev, "target=%d raw=%d", target, raw)
			assert.Equal(t, raw >= target, r.IsComplete(), "target=%d raw=%d", target, raw)
			prev = r.Percent
		}
	}
}

func TestEarnings(t *testing.T) {
	assert.Equal(t, int64(2000), goals.Earnings(10, 200))
	assert.Equal(t, int64(0), goals.Earnings(0, 200))
	assert.Equal(t, int64(0), goals.Earnings(-3, 200))
}
