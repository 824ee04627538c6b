// Package roarm speaks the RoArm-M2-S JSON serial protocol and implements
// the adaptive torque/gain calibration procedure on top of it.
package roarm

import (
	"bytes"
	"encoding/json"
	"math"
)

// Firmware operation codes. Every command and reply is a JSON object with
// the code in field "T".
const (
	opMoveInit       = 100
	opJointMove      = 101
	opPoseMove       = 102
	opQueryPosition  = 105
	opSetGain        = 108
	opReset          = 109
	opTorqueLimits   = 112
	opTorqueSwitch   = 210
	opPhoneAngle     = 700
	opPhoneMode      = 701
	opPhoneTorque    = 702
	opPositionReport = 1051
)

// Joint identifies a servo on the arm, matching the firmware's joint numbering.
type Joint int

const (
	Base     Joint = 1
	Shoulder Joint = 2
	Elbow    Joint = 3
	Hand     Joint = 4
)

func (j Joint) String() string {
	switch j {
	case Base:
		return "base"
	case Shoulder:
		return "shoulder"
	case Elbow:
		return "elbow"
	case Hand:
		return "hand"
	default:
		return "unknown"
	}
}

type queryPositionCmd struct {
	T int `json:"T"`
}

type moveInitCmd struct {
	T int `json:"T"`
}

type resetCmd struct {
	T int `json:"T"`
}

// jointMoveCmd moves a single joint to an absolute angle. The firmware
// takes radians here even though it reports positions in degrees.
type jointMoveCmd struct {
	T     int     `json:"T"`
	Joint int     `json:"joint"`
	Rad   float64 `json:"rad"`
	Spd   float64 `json:"spd"`
	Acc   float64 `json:"acc"`
}

type poseMoveCmd struct {
	T        int     `json:"T"`
	Base     float64 `json:"base"`
	Shoulder float64 `json:"shoulder"`
	Elbow    float64 `json:"elbow"`
	Hand     float64 `json:"hand"`
	Spd      float64 `json:"spd"`
	Acc      float64 `json:"acc"`
}

type setGainCmd struct {
	T     int `json:"T"`
	Joint int `json:"joint"`
	P     int `json:"p"`
	I     int `json:"i"`
}

// torqueLimitsCmd sets per-joint torque ceilings. Mode 1 applies the
// limits, mode 0 releases them.
type torqueLimitsCmd struct {
	T    int `json:"T"`
	Mode int `json:"mode"`
	B    int `json:"b"`
	S    int `json:"s"`
	E    int `json:"e"`
	H    int `json:"h"`
}

type torqueSwitchCmd struct {
	T   int `json:"T"`
	Cmd int `json:"cmd"`
}

type phoneAngleCmd struct {
	T     int     `json:"T"`
	Angle float64 `json:"angle"`
}

type phoneModeCmd struct {
	T    int    `json:"T"`
	Mode string `json:"mode"`
}

type phoneTorqueCmd struct {
	T   int `json:"T"`
	Cmd int `json:"cmd"`
}

// positionReport is the firmware's reply to a position query. Angles are
// degrees; torque readbacks and the phone angle are optional and default
// to zero / absent depending on firmware version.
type positionReport struct {
	T    int      `json:"T"`
	B    float64  `json:"b"`
	S    float64  `json:"s"`
	E    float64  `json:"e"`
	Hand float64  `json:"t"`
	TorS int      `json:"torS"`
	TorE int      `json:"torE"`
	P    *float64 `json:"p"`
}

// decodePositionReport decodes one reply line and reports whether it is a
// position report. The firmware interleaves status chatter with replies, so
// anything that is not a well-formed report is skipped, not an error.
func decodePositionReport(line []byte) (positionReport, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return positionReport{}, false
	}
	var rep positionReport
	if err := json.Unmarshal(line, &rep); err != nil {
		return positionReport{}, false
	}
	if rep.T != opPositionReport {
		return positionReport{}, false
	}
	return rep, true
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
