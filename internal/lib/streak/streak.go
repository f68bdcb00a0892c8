// Package streak computes prayer streak statistics. All functions are pure:
// the input is a today-first window of "fully completed" day flags
// (index 0 = today, index i = i days ago).
package streak

import "math"

// Current returns the length of the leading run of completed days starting
// at today. It stops at the first incomplete day.
func Current(days []bool) int {
	n := 0
	for _, done := range days {
		if !done {
			break
		}
		n++
	}
	return n
}

// Best returns the length of the longest contiguous run of completed days
// anywhere in the window.
func Best(days []bool) int {
	best, run := 0, 0
	for _, done := range days {
		if !done {
			run = 0
			continue
		}
		run++
		if run > best {
			best = run
		}
	}
	return best
}

// CompletionPercent returns round(done/total*100), or 0 when total is zero.
func CompletionPercent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
