// Package goals derives goal progress and display earnings from ledger
// counters and records goal claims.
package goals

import "math"

type Result struct {
	Current int `json:"current"`
	Target  int `json:"target"`
	Percent int `json:"percent"`
}

// Progress clamps raw into [0, target] and rounds the completion percentage
// half up. A non-positive target yields zero percent; only a reached target
// yields 100.
func Progress(raw, target int) Result {
	if target < 0 {
		target = 0
	}
	current := raw
	if current < 0 {
		current = 0
	}
	if current > target {
		current = target
	}

	percent := 0
	if target > 0 {
		percent = int(math.Floor(float64(current)*100/float64(target) + 0.5))
		percent = min(max(percent, 0), 100)
		// Rounding must not report an unfinished goal as done.
		if percent == 100 && current < target {
			percent = 99
		}
	}

	return Result{Current: current, Target: target, Percent: percent}
}

func (r Result) IsComplete() bool {
	return r.Percent == 100
}

// Earnings is display math only; it never touches balances.
func Earnings(count int, rate int64) int64 {
	if count < 0 {
		count = 0
	}
	return int64(count) * rate
}
