package roarm

// Actuation commands. All of them are idempotent fire-and-forget sends;
// the only wait is the channel's fixed post-send settle.

// Baseline torque ceiling for the base and hand joints, which the
// calibration procedure never sweeps.
const auxTorque = 50

// SetTorqueLimits applies torque ceilings to the shoulder and elbow,
// keeping base and hand at their baseline.
func (c *Channel) SetTorqueLimits(shoulder, elbow int) error {
	return c.Send(torqueLimitsCmd{
		T: opTorqueLimits, Mode: 1,
		B: auxTorque, S: shoulder, E: elbow, H: auxTorque,
	})
}

// SetGain applies the proportional gain to every joint, with the integral
// term pinned at zero.
func (c *Channel) SetGain(p int) error {
	for j := Base; j <= Hand; j++ {
		if err := c.Send(setGainCmd{T: opSetGain, Joint: int(j), P: p, I: 0}); err != nil {
			return err
		}
	}
	return nil
}

// DisableAndReset zeroes all torque limits and resets the controller.
func (c *Channel) DisableAndReset() error {
	if err := c.Send(torqueLimitsCmd{T: opTorqueLimits, Mode: 0}); err != nil {
		return err
	}
	return c.Send(resetCmd{T: opReset})
}

// MoveJoint commands an absolute single-joint move. The angle is degrees;
// the wire format wants radians.
func (c *Channel) MoveJoint(j Joint, deg, spd, acc float64) error {
	return c.Send(jointMoveCmd{
		T: opJointMove, Joint: int(j),
		Rad: degToRad(deg), Spd: spd, Acc: acc,
	})
}

// TorqueEnable switches servo torque for the whole arm on or off. With
// torque off the arm can be posed by hand.
func (c *Channel) TorqueEnable(on bool) error {
	cmd := torqueSwitchCmd{T: opTorqueSwitch}
	if on {
		cmd.Cmd = 1
	}
	return c.Send(cmd)
}

// MoveToInit moves every joint to its power-on middle position.
func (c *Channel) MoveToInit() error {
	return c.Send(moveInitCmd{T: opMoveInit})
}

// MoveTo commands an all-joint move to a saved preset.
func (c *Channel) MoveTo(p Preset) error {
	err := c.Send(poseMoveCmd{
		T:        opPoseMove,
		Base:     degToRad(p.Base),
		Shoulder: degToRad(p.Shoulder),
		Elbow:    degToRad(p.Elbow),
		Hand:     degToRad(p.Hand),
		Spd:      0,
		Acc:      10,
	})
	if err != nil {
		return err
	}
	if p.Phone != nil {
		return c.PhoneAngle(*p.Phone)
	}
	return nil
}

// Phone-holder attachment control.

// PhoneMode sets a named phone orientation: portrait, landscape,
// portrait_inv or landscape_inv.
func (c *Channel) PhoneMode(mode string) error {
	return c.Send(phoneModeCmd{T: opPhoneMode, Mode: mode})
}

// PhoneAngle rotates the phone holder to an absolute angle in degrees.
func (c *Channel) PhoneAngle(deg float64) error {
	return c.Send(phoneAngleCmd{T: opPhoneAngle, Angle: deg})
}

// PhoneTorque locks or unlocks the phone-holder servo.
func (c *Channel) PhoneTorque(on bool) error {
	cmd := phoneTorqueCmd{T: opPhoneTorque}
	if on {
		cmd.Cmd = 1
	}
	return c.Send(cmd)
}
