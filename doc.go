// Package adapt provides tooling for the Waveshare RoArm-M2-S robot arm.
//
// A.D.A.P.T. (Adaptive Drift-Aware Position & Torque tuner) talks to the
// arm's JSON firmware over USB serial and finds the lowest torque limits
// and control-loop gain that still hold the arm (and whatever it carries)
// steady. It also manages named position presets and the phone-holder
// attachment.
//
// # Installation
//
//	go install github.com/NickSakito777/adapt/cmd/adapt@latest
//
// # Usage
//
// Put a load on the arm and find the minimum safe torque/gain:
//
//	adapt tune
//
// Manage saved positions and the phone holder interactively:
//
//	adapt menu
//
// Watch live joint angles:
//
//	adapt watch
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/adapt: CLI with tune, menu, watch and send commands
//   - pkg/roarm: serial channel, JSON protocol, drift monitoring and the
//     calibration procedure
package adapt
