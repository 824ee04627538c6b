package roarm

import (
	"math"
	"time"
)

// UnsafeDrift is reported for every joint when a monitoring window yields
// too few samples to judge stability. An under-sampled window must read as
// "unknown, assume falling", never as "steady".
const UnsafeDrift = 999.0

// Drift summarizes joint movement over a monitoring window. Per joint it
// is the worse of endpoint displacement (|last - first|) and full
// range of motion (max - min): a joint oscillating back to its start and a
// joint creeping steadily in one direction must both register.
type Drift struct {
	Shoulder float64
	Elbow    float64
	Samples  int

	// Last is the final snapshot of the window, valid when Samples > 0.
	// The sweeps compare it against the hold pose.
	Last Snapshot
}

// MonitorDrift samples as fast as the channel allows until the window
// elapses. Failed queries are dropped, not retried.
func MonitorDrift(s Sampler, window time.Duration) Drift {
	var samples []Snapshot
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if snap, ok := s.QueryPosition(); ok {
			samples = append(samples, snap)
		}
	}
	return computeDrift(samples)
}

func computeDrift(samples []Snapshot) Drift {
	d := Drift{Samples: len(samples)}
	if len(samples) > 0 {
		d.Last = samples[len(samples)-1]
	}
	if len(samples) < 2 {
		d.Shoulder = UnsafeDrift
		d.Elbow = UnsafeDrift
		return d
	}

	first, last := samples[0], samples[len(samples)-1]
	minS, maxS := samples[0].Shoulder, samples[0].Shoulder
	minE, maxE := samples[0].Elbow, samples[0].Elbow
	for _, s := range samples[1:] {
		minS = math.Min(minS, s.Shoulder)
		maxS = math.Max(maxS, s.Shoulder)
		minE = math.Min(minE, s.Elbow)
		maxE = math.Max(maxE, s.Elbow)
	}

	d.Shoulder = math.Max(math.Abs(last.Shoulder-first.Shoulder), maxS-minS)
	d.Elbow = math.Max(math.Abs(last.Elbow-first.Elbow), maxE-minE)
	return d
}
