package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Tune  TuneCommand  `command:"tune" description:"Find the minimum safe torque and gain for the current load"`
	Menu  MenuCommand  `command:"menu" description:"Interactive position manager and phone-holder control"`
	Watch WatchCommand `command:"watch" description:"Live joint-angle chart"`
	Send  SendCommand  `command:"send" description:"Send a raw JSON command to the firmware"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "A.D.A.P.T. - adaptive torque/gain tuner and position manager for the RoArm-M2-S"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
