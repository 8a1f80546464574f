// Package schedule plans randomized send instants inside a daily window.
package schedule

import (
	"math/rand"
	"sort"
	"time"
)

// Window is a daily sending window expressed as offsets from local midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// Delays returns up to count sleep durations to be slept in sequence before
// each send. Summed onto now they land on distinct, strictly increasing,
// uniformly drawn whole seconds within [max(now, window.Start), window.End].
// A first instant drawn on the current second is now itself. An empty
// result means the window has already closed for today.
func Delays(count int, w Window, now time.Time, rng *rand.Rand) []time.Duration {
	secs := DelaySeconds(count, int(w.Start/time.Second), int(w.End/time.Second), secondsSinceMidnight(now), rng)
	out := make([]time.Duration, len(secs))
	for i, s := range secs {
		out[i] = time.Duration(s) * time.Second
	}
	// Sampling works on whole seconds; absorb the sub-second part of now so
	// the cumulative instants fall on the sampled seconds.
	frac := time.Duration(now.Nanosecond())
	for i := 0; i < len(out) && frac > 0; i++ {
		if out[i] >= frac {
			out[i] -= frac
			break
		}
		frac -= out[i]
		out[i] = 0
	}
	return out
}

// DelaySeconds is Delays on raw seconds-since-midnight values.
func DelaySeconds(count, start, end, now int, rng *rand.Rand) []int {
	if count <= 0 {
		return nil
	}
	effectiveStart := start
	if now > effectiveStart {
		effectiveStart = now
	}
	if end <= effectiveStart {
		return nil
	}
	span := end - effectiveStart
	n := count
	if n > span {
		n = span
	}

	// Rejection-sample n distinct offsets from [0, span].
	picked := make(map[int]struct{}, n)
	for len(picked) < n {
		picked[rng.Intn(span+1)] = struct{}{}
	}
	offsets := make([]int, 0, n)
	for o := range picked {
		offsets = append(offsets, o)
	}
	sort.Ints(offsets)

	delays := make([]int, n)
	delays[0] = (effectiveStart - now) + offsets[0]
	for i := 1; i < n; i++ {
		delays[i] = offsets[i] - offsets[i-1]
	}
	return delays
}

// Planned converts delays into absolute dispatch instants starting at now.
func Planned(now time.Time, delays []time.Duration) []time.Time {
	out := make([]time.Time, len(delays))
	at := now
	for i, d := range delays {
		at = at.Add(d)
		out[i] = at
	}
	return out
}

func secondsSinceMidnight(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
