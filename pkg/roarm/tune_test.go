package roarm

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type torqueCall struct{ s, e int }

// fakeDevice scripts the arm's behavior: the position function decides,
// from the currently applied torque/gain, whether the arm holds steady or
// falls a little further on every read.
type fakeDevice struct {
	torque    torqueCall
	gain      int
	torqueLog []torqueCall
	gainLog   []int
	releases  int
	resets    int
	moved     []Joint
	queries   int
	position  func(d *fakeDevice) (Snapshot, bool)
}

func (d *fakeDevice) QueryPosition() (Snapshot, bool) {
	d.queries++
	if d.position == nil {
		return Snapshot{}, false
	}
	return d.position(d)
}

func (d *fakeDevice) SetTorqueLimits(s, e int) error {
	d.torque = torqueCall{s, e}
	d.torqueLog = append(d.torqueLog, d.torque)
	return nil
}

func (d *fakeDevice) SetGain(p int) error {
	d.gain = p
	d.gainLog = append(d.gainLog, p)
	return nil
}

func (d *fakeDevice) TorqueEnable(on bool) error {
	if !on {
		d.releases++
	}
	return nil
}

func (d *fakeDevice) DisableAndReset() error {
	d.resets++
	return nil
}

func (d *fakeDevice) MoveJoint(j Joint, deg, spd, acc float64) error {
	d.moved = append(d.moved, j)
	return nil
}

// steadyAt returns a position function for an arm that holds (10°, 20°)
// while the applied torque/gain stay at or above the given floors, and
// falls a little further on every read below them.
func steadyAt(minTorqueS, minTorqueE, minGain int) func(*fakeDevice) (Snapshot, bool) {
	return func(d *fakeDevice) (Snapshot, bool) {
		s, e := 10.0, 20.0
		if d.torque.s < minTorqueS || d.gain < minGain {
			s -= 5 * float64(d.queries)
		}
		if d.torque.e < minTorqueE || d.gain < minGain {
			e -= 5 * float64(d.queries)
		}
		return Snapshot{
			Shoulder: s, Elbow: e,
			ShoulderTorque: d.torque.s, ElbowTorque: d.torque.e,
			Time: time.Now(),
		}, true
	}
}

func fastConfig() TunerConfig {
	cfg := DefaultTunerConfig()
	cfg.TorqueCandidates = []int{700, 600, 500, 450}
	cfg.GainCandidates = []int{12, 8}
	cfg.DeploySettle = time.Millisecond
	cfg.SettleAfter = time.Millisecond
	cfg.HoldSettle = time.Millisecond
	cfg.MonitorWindow = 5 * time.Millisecond
	cfg.ReleaseWait = 0
	return cfg
}

func TestTunerStopsOnFirstRejection(t *testing.T) {
	dev := &fakeDevice{}
	dev.position = steadyAt(600, 0, 0)

	res := NewTuner(dev, fastConfig(), io.Discard).Run()

	assert.Equal(t, 600, res.BestShoulderTorque)
	assert.Equal(t, 650, res.SafeShoulderTorque)

	// 500 was rejected, so 600 must be re-applied right away and 450
	// never tried.
	rejected := -1
	for i, call := range dev.torqueLog {
		assert.NotEqual(t, 450, call.s, "candidate after the rejection must not be tried")
		if call == (torqueCall{500, 800}) {
			rejected = i
		}
	}
	require.GreaterOrEqual(t, rejected, 0)
	require.Less(t, rejected+1, len(dev.torqueLog))
	assert.Equal(t, torqueCall{600, 800}, dev.torqueLog[rejected+1])

	// The elbow and gain are unaffected by the shoulder floor: their
	// sweeps run to exhaustion and keep the smallest candidates.
	assert.Equal(t, 450, res.BestElbowTorque)
	assert.Equal(t, 500, res.SafeElbowTorque)
	assert.Equal(t, 8, res.Gain)
}

func TestTunerAcceptsExhaustedSequence(t *testing.T) {
	dev := &fakeDevice{}
	// Settles at 10.0° during hold-establish, shifts to a stable 10.2°
	// once the first lower candidate is applied: 0.2° displacement and
	// zero dynamic drift, well under the 5° threshold.
	dev.position = func(d *fakeDevice) (Snapshot, bool) {
		s := 10.0
		if d.torque.s != 800 {
			s = 10.2
		}
		return Snapshot{Shoulder: s, Elbow: 20, Time: time.Now()}, true
	}

	cfg := fastConfig()
	cfg.TorqueCandidates = []int{700, 600}

	res := NewTuner(dev, cfg, io.Discard).Run()

	assert.Equal(t, 600, res.BestShoulderTorque)
	assert.Equal(t, 650, res.SafeShoulderTorque)
	assert.Equal(t, 1, dev.resets)
}

func TestTunerCrossAxisGate(t *testing.T) {
	dev := &fakeDevice{}
	// Both joints are individually stable at any torque, but dropping the
	// elbow to 500 or below shifts the shoulder 6° off its hold pose.
	dev.position = func(d *fakeDevice) (Snapshot, bool) {
		s, e := 10.0, 20.0
		if d.torque.e != 0 && d.torque.e <= 500 {
			s += 6
		}
		return Snapshot{Shoulder: s, Elbow: e, Time: time.Now()}, true
	}

	res := NewTuner(dev, fastConfig(), io.Discard).Run()

	// Shoulder sweep saw no coupling (elbow pinned at 800).
	assert.Equal(t, 450, res.BestShoulderTorque)

	// Elbow 500 is rejected purely by the shoulder displacement gate.
	assert.Equal(t, 600, res.BestElbowTorque)
	assert.Equal(t, 650, res.SafeElbowTorque)
	for _, call := range dev.torqueLog {
		assert.NotEqual(t, 450, call.e, "elbow candidate after the rejection must not be tried")
	}
}

func TestTunerRecoveryAlwaysRuns(t *testing.T) {
	dev := &fakeDevice{} // every query fails

	res := NewTuner(dev, fastConfig(), io.Discard).Run()

	// Every window under-samples, every candidate is skipped, the start
	// values stand, and the final release still happens exactly once.
	assert.Equal(t, 1, dev.resets)
	assert.Equal(t, 800, res.BestShoulderTorque)
	assert.Equal(t, 850, res.SafeShoulderTorque)
	assert.Equal(t, 800, res.BestElbowTorque)
	assert.Equal(t, 850, res.SafeElbowTorque)
	assert.Equal(t, 16, res.Gain)
	assert.Greater(t, dev.queries, 0)
}

func TestTunerSkipsUndersampledMidSweep(t *testing.T) {
	dev := &fakeDevice{}
	// Telemetry blacks out while shoulder 600 is applied: that candidate
	// can be neither accepted nor rejected. 500 answers steadily, 450
	// falls on every read.
	dev.position = func(d *fakeDevice) (Snapshot, bool) {
		switch d.torque.s {
		case 600:
			return Snapshot{}, false
		case 450:
			return Snapshot{Shoulder: 10 - 5*float64(d.queries), Elbow: 20, Time: time.Now()}, true
		default:
			return Snapshot{Shoulder: 10, Elbow: 20, Time: time.Now()}, true
		}
	}

	var out bytes.Buffer
	res := NewTuner(dev, fastConfig(), &out).Run()

	// 600 is skipped, the sweep moves on: 500 becomes best and survives
	// the rejection at 450.
	assert.Equal(t, 500, res.BestShoulderTorque)
	assert.Equal(t, 550, res.SafeShoulderTorque)
	assert.Contains(t, out.String(), "shoulder=600: not enough samples")

	// The rejection at 450 must re-apply 500, never the skipped 600.
	rejected := -1
	for i, call := range dev.torqueLog {
		if call == (torqueCall{450, 800}) {
			rejected = i
		}
	}
	require.GreaterOrEqual(t, rejected, 0)
	require.Less(t, rejected+1, len(dev.torqueLog))
	assert.Equal(t, torqueCall{500, 800}, dev.torqueLog[rejected+1])
}

func TestTunerProgressLinesTimestamped(t *testing.T) {
	dev := &fakeDevice{}
	dev.position = steadyAt(0, 0, 0)

	var out bytes.Buffer
	NewTuner(dev, fastConfig(), &out).Run()

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.NotEmpty(t, lines)
	stamp := regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] `)
	for _, line := range lines {
		assert.Regexp(t, stamp, line)
	}
}

func TestTunerDeploysBothJoints(t *testing.T) {
	dev := &fakeDevice{}
	dev.position = steadyAt(0, 0, 0)

	NewTuner(dev, fastConfig(), io.Discard).Run()

	require.GreaterOrEqual(t, len(dev.moved), 2)
	assert.Equal(t, Shoulder, dev.moved[0])
	assert.Equal(t, Elbow, dev.moved[1])
	assert.Equal(t, 1, dev.releases)
}

func TestCaptureHoldKeepsPreviousOnFailure(t *testing.T) {
	dev := &fakeDevice{} // queries fail
	tuner := NewTuner(dev, fastConfig(), io.Discard)

	prev := holdPose{shoulder: 1.5, elbow: -2.5}
	assert.Equal(t, prev, tuner.captureHold(prev))
}

func TestSafeValue(t *testing.T) {
	tests := []struct {
		best, margin, limit, want int
	}{
		{600, 50, 1000, 650},
		{950, 50, 1000, 1000},
		{1000, 50, 1000, 1000},
		{100, 0, 1000, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeValue(tt.best, tt.margin, tt.limit))
	}
}

func TestDefaultTunerConfigCandidatesDescend(t *testing.T) {
	cfg := DefaultTunerConfig()
	for _, seq := range [][]int{cfg.TorqueCandidates, cfg.GainCandidates} {
		require.NotEmpty(t, seq)
		for i := 1; i < len(seq); i++ {
			assert.Less(t, seq[i], seq[i-1], "candidates must strictly descend")
		}
	}
	assert.Less(t, cfg.TorqueCandidates[0], cfg.StartTorque)
	assert.Less(t, cfg.GainCandidates[0], cfg.StartGain)
}
