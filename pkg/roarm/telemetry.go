package roarm

import (
	"encoding/json"
	"time"
)

// Snapshot is one joint-state reading. All angles are degrees (the unit
// the firmware reports in); torque readbacks are the firmware's raw load
// values and are 0 when the firmware omits them.
type Snapshot struct {
	Base     float64
	Shoulder float64
	Elbow    float64
	Hand     float64

	ShoulderTorque int
	ElbowTorque    int

	Phone    float64
	HasPhone bool

	Time time.Time
}

// Sampler produces joint-state snapshots. The second return is false when
// no reading could be obtained; callers drop such samples.
type Sampler interface {
	QueryPosition() (Snapshot, bool)
}

// QueryPosition sends a position query and scans the buffered replies for
// a position report. Malformed and interleaved lines are skipped. Returns
// false if no report shows up before the buffer empties.
func (c *Channel) QueryPosition() (Snapshot, bool) {
	if err := c.Flush(); err != nil {
		return Snapshot{}, false
	}
	data, err := json.Marshal(queryPositionCmd{T: opQueryPosition})
	if err != nil {
		return Snapshot{}, false
	}
	if _, err := c.port.Write(append(data, '\n')); err != nil {
		return Snapshot{}, false
	}
	c.port.Drain()
	if c.cfg.QuerySettle > 0 {
		time.Sleep(c.cfg.QuerySettle)
	}

	for _, line := range c.readLines() {
		rep, ok := decodePositionReport(line)
		if !ok {
			continue
		}
		snap := Snapshot{
			Base:           rep.B,
			Shoulder:       rep.S,
			Elbow:          rep.E,
			Hand:           rep.Hand,
			ShoulderTorque: rep.TorS,
			ElbowTorque:    rep.TorE,
			Time:           time.Now(),
		}
		if rep.P != nil {
			snap.Phone = *rep.P
			snap.HasPhone = true
		}
		return snap, true
	}
	return Snapshot{}, false
}
