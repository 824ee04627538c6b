package roarm

import (
	"fmt"
	"io"
	"time"
)

// Device is the slice of the channel the calibration procedure drives.
// *Channel implements it; tests script it.
type Device interface {
	Sampler
	SetTorqueLimits(shoulder, elbow int) error
	SetGain(p int) error
	TorqueEnable(on bool) error
	DisableAndReset() error
	MoveJoint(j Joint, deg, spd, acc float64) error
}

// TunerConfig holds the knobs of the calibration procedure. The defaults
// are hand-tuned for a RoArm-M2-S carrying a phone; there is no derivation
// behind them, which is exactly why they are configuration and not
// constants.
type TunerConfig struct {
	// Threshold is the stability limit in degrees: a candidate survives
	// only if both its displacement from the hold pose and its dynamic
	// drift stay below it.
	Threshold float64

	// TorqueCandidates and GainCandidates are tried in order and must be
	// strictly descending.
	TorqueCandidates []int
	GainCandidates   []int

	StartTorque int // known-safe high torque the search descends from
	StartGain   int // known-safe high gain

	SafetyMargin int // added to the best torque found
	TorqueCap    int // upper bound after adding the margin

	DeployShoulderDeg float64
	DeployElbowDeg    float64
	MoveSpeed         float64
	MoveAccel         float64

	DeploySettle  time.Duration // per-joint wait after the deploy moves
	SettleAfter   time.Duration // wait after a torque/gain change
	HoldSettle    time.Duration // wait before capturing a hold pose
	MonitorWindow time.Duration // drift-monitoring window per candidate
	ReleaseWait   time.Duration // countdown for the operator to load the arm
}

// DefaultTunerConfig returns the stock procedure parameters.
func DefaultTunerConfig() TunerConfig {
	return TunerConfig{
		Threshold:         5.0,
		TorqueCandidates:  []int{700, 600, 500, 450, 400, 350, 300, 250, 200, 150, 100},
		GainCandidates:    []int{12, 8, 6, 4, 3, 2},
		StartTorque:       800,
		StartGain:         16,
		SafetyMargin:      50,
		TorqueCap:         1000,
		DeployShoulderDeg: -30,
		DeployElbowDeg:    45,
		MoveSpeed:         500,
		MoveAccel:         50,
		DeploySettle:      3 * time.Second,
		SettleAfter:       2 * time.Second,
		HoldSettle:        3 * time.Second,
		MonitorWindow:     3 * time.Second,
		ReleaseWait:       15 * time.Second,
	}
}

// Result is the outcome of one calibration run. The Safe values carry the
// safety margin and are what should be applied to the arm; Gain has no
// margin.
type Result struct {
	BestShoulderTorque int
	BestElbowTorque    int
	SafeShoulderTorque int
	SafeElbowTorque    int
	Gain               int
}

// Tuner runs the calibration procedure: establish a high-torque hold pose,
// then walk torque (shoulder, then elbow) and gain down until the arm
// starts falling, and report the last values that held.
//
// A run owns its Device exclusively and is strictly sequential. It cannot
// be cancelled once started and always finishes with a torque release,
// however badly the telemetry behaved along the way.
type Tuner struct {
	dev Device
	cfg TunerConfig
	out io.Writer
}

// NewTuner wires a tuner to a device. Progress lines go to out; pass
// io.Discard to silence them.
func NewTuner(dev Device, cfg TunerConfig, out io.Writer) *Tuner {
	if out == nil {
		out = io.Discard
	}
	return &Tuner{dev: dev, cfg: cfg, out: out}
}

func (t *Tuner) logf(format string, args ...any) {
	fmt.Fprintf(t.out, "[%s] %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// holdPose is the settled reference position a sweep measures displacement
// against. It is re-captured after every torque or gain baseline change
// because the settled pose shifts with the holding force.
type holdPose struct {
	shoulder float64
	elbow    float64
}

// captureHold samples the settled pose. A failed read keeps the previous
// hold values: the procedure degrades, it never aborts.
func (t *Tuner) captureHold(prev holdPose) holdPose {
	if snap, ok := t.dev.QueryPosition(); ok {
		t.logf("  hold pose: s=%.1f° e=%.1f° torS=%d torE=%d",
			snap.Shoulder, snap.Elbow, snap.ShoulderTorque, snap.ElbowTorque)
		return holdPose{shoulder: snap.Shoulder, elbow: snap.Elbow}
	}
	t.logf("  hold pose: read failed, keeping s=%.1f° e=%.1f°", prev.shoulder, prev.elbow)
	return prev
}

// sweep walks a strictly descending candidate list. Each candidate is
// applied, left to settle, then drift-monitored. Under-sampled windows
// skip the candidate; the first real rejection re-applies the last
// accepted value and ends the sweep.
func (t *Tuner) sweep(label string, start int, candidates []int,
	apply func(int) error, accept func(Drift) (bool, string)) int {

	best := start
	for _, cand := range candidates {
		if err := apply(cand); err != nil {
			t.logf("  %s=%d: apply failed: %v", label, cand, err)
		}
		time.Sleep(t.cfg.SettleAfter)

		d := MonitorDrift(t.dev, t.cfg.MonitorWindow)
		if d.Samples < 2 {
			t.logf("  %s=%d: not enough samples (%d), skipping", label, cand, d.Samples)
			continue
		}

		ok, detail := accept(d)
		if ok {
			t.logf("  %s=%d: %s -> ok", label, cand, detail)
			best = cand
			continue
		}

		t.logf("  %s=%d: %s -> falling! keeping %d", label, cand, detail, best)
		if err := apply(best); err != nil {
			t.logf("  %s=%d: revert failed: %v", label, best, err)
		}
		time.Sleep(t.cfg.SettleAfter)
		break
	}
	return best
}

// safeValue adds the safety margin and clamps to the torque cap.
func safeValue(best, margin, limit int) int {
	if v := best + margin; v < limit {
		return v
	}
	return limit
}

// Run executes the whole procedure and reports the minimum safe values.
// It always runs to completion, including the final torque release.
func (t *Tuner) Run() Result {
	cfg := t.cfg
	th := cfg.Threshold

	// Deploy: extend the arm to the reference pose. Fixed waits, not
	// feedback-driven; the moves are slow and the pose does not need to
	// be exact.
	t.logf("[1] deploying arm (shoulder %.0f°, elbow %.0f°)", cfg.DeployShoulderDeg, cfg.DeployElbowDeg)
	if err := t.dev.MoveJoint(Shoulder, cfg.DeployShoulderDeg, cfg.MoveSpeed, cfg.MoveAccel); err != nil {
		t.logf("  shoulder move failed: %v", err)
	}
	time.Sleep(cfg.DeploySettle)
	if err := t.dev.MoveJoint(Elbow, cfg.DeployElbowDeg, cfg.MoveSpeed, cfg.MoveAccel); err != nil {
		t.logf("  elbow move failed: %v", err)
	}
	time.Sleep(cfg.DeploySettle)
	if snap, ok := t.dev.QueryPosition(); ok {
		t.logf("  at s=%.1f° e=%.1f°", snap.Shoulder, snap.Elbow)
	}

	// Release: drop all torque so the operator can place the load. The
	// periodic samples during the countdown are operator feedback only.
	t.logf("[2] releasing torque - place the load on the arm now")
	if err := t.dev.TorqueEnable(false); err != nil {
		t.logf("  release failed: %v", err)
	}
	for remaining := int(cfg.ReleaseWait / time.Second); remaining > 0; remaining-- {
		if remaining%5 == 0 {
			if snap, ok := t.dev.QueryPosition(); ok {
				t.logf("  %2ds: s=%.1f° e=%.1f°", remaining, snap.Shoulder, snap.Elbow)
			} else {
				t.logf("  %2ds...", remaining)
			}
		}
		time.Sleep(time.Second)
	}

	// Rest capture, for the operator's reference only.
	if snap, ok := t.dev.QueryPosition(); ok {
		t.logf("  rest pose under load: s=%.1f° e=%.1f°", snap.Shoulder, snap.Elbow)
	}

	// Hold-establish: bring both joints up to the known-safe operating
	// point and capture the baseline every shoulder candidate is judged
	// against.
	t.logf("[3] establishing hold at torque %d, gain %d", cfg.StartTorque, cfg.StartGain)
	if err := t.dev.SetTorqueLimits(cfg.StartTorque, cfg.StartTorque); err != nil {
		t.logf("  set torque failed: %v", err)
	}
	if err := t.dev.SetGain(cfg.StartGain); err != nil {
		t.logf("  set gain failed: %v", err)
	}
	time.Sleep(cfg.HoldSettle)
	hold := t.captureHold(holdPose{})

	// Shoulder sweep, elbow pinned high.
	t.logf("[4] shoulder sweep (elbow fixed at %d)", cfg.StartTorque)
	bestShoulder := t.sweep("shoulder", cfg.StartTorque, cfg.TorqueCandidates,
		func(v int) error { return t.dev.SetTorqueLimits(v, cfg.StartTorque) },
		func(d Drift) (bool, string) {
			disp := abs(d.Last.Shoulder - hold.shoulder)
			detail := fmt.Sprintf("disp s=%.1f° dyn s=%.1f° torS=%d", disp, d.Shoulder, d.Last.ShoulderTorque)
			return disp < th && d.Shoulder < th, detail
		})
	safeShoulder := safeValue(bestShoulder, cfg.SafetyMargin, cfg.TorqueCap)
	t.logf("  >> shoulder min=%d safe=%d", bestShoulder, safeShoulder)

	// Re-establish the hold with the safety shoulder torque before the
	// elbow sweep; the settled pose moves when shoulder torque changes.
	if err := t.dev.SetTorqueLimits(safeShoulder, cfg.StartTorque); err != nil {
		t.logf("  set torque failed: %v", err)
	}
	time.Sleep(cfg.SettleAfter)
	hold = t.captureHold(hold)

	// Elbow sweep, shoulder pinned at its safety value. The shoulder
	// displacement gate stays on: lowering elbow torque must not unsettle
	// the joint already fixed.
	t.logf("[5] elbow sweep (shoulder fixed at %d)", safeShoulder)
	bestElbow := t.sweep("elbow", cfg.StartTorque, cfg.TorqueCandidates,
		func(v int) error { return t.dev.SetTorqueLimits(safeShoulder, v) },
		func(d Drift) (bool, string) {
			dispS := abs(d.Last.Shoulder - hold.shoulder)
			dispE := abs(d.Last.Elbow - hold.elbow)
			detail := fmt.Sprintf("disp s=%.1f° e=%.1f° dyn e=%.1f° torE=%d", dispS, dispE, d.Elbow, d.Last.ElbowTorque)
			return dispE < th && d.Elbow < th && dispS < th, detail
		})
	safeElbow := safeValue(bestElbow, cfg.SafetyMargin, cfg.TorqueCap)
	t.logf("  >> elbow min=%d safe=%d", bestElbow, safeElbow)

	// Gain sweep at the final torque values, fresh baseline again.
	if err := t.dev.SetTorqueLimits(safeShoulder, safeElbow); err != nil {
		t.logf("  set torque failed: %v", err)
	}
	time.Sleep(cfg.SettleAfter)
	hold = t.captureHold(hold)

	t.logf("[6] gain sweep")
	bestGain := t.sweep("gain", cfg.StartGain, cfg.GainCandidates,
		func(v int) error { return t.dev.SetGain(v) },
		func(d Drift) (bool, string) {
			dispS := abs(d.Last.Shoulder - hold.shoulder)
			dispE := abs(d.Last.Elbow - hold.elbow)
			detail := fmt.Sprintf("disp s=%.1f° e=%.1f° dyn %.1f°/%.1f°", dispS, dispE, d.Shoulder, d.Elbow)
			return dispS < th && dispE < th && d.Shoulder < th && d.Elbow < th, detail
		})
	t.logf("  >> gain min=%d", bestGain)

	// Recovery runs no matter how the sweeps went.
	t.logf("[7] releasing torque")
	if err := t.dev.DisableAndReset(); err != nil {
		t.logf("  release failed: %v", err)
	}

	return Result{
		BestShoulderTorque: bestShoulder,
		BestElbowTorque:    bestElbow,
		SafeShoulderTorque: safeShoulder,
		SafeElbowTorque:    safeElbow,
		Gain:               bestGain,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
