package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/NickSakito777/adapt/pkg/roarm"
)

type MenuCommand struct {
	Port    string `long:"port" short:"p" description:"Serial port of the arm (prompts when omitted)"`
	Presets string `long:"presets" description:"Presets file" default:"positions.json"`
}

func (c *MenuCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("A.D.A.P.T. Position Manager"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	store, err := roarm.LoadPresets(c.Presets)
	if err != nil {
		return err
	}
	if store.Len() > 0 {
		fmt.Printf("Loaded %d saved position(s)\n", store.Len())
	}

	ch, err := connectArm(c.Port)
	if err != nil {
		return err
	}
	defer ch.Close()

	for {
		var choice string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("What next?").
					Options(
						huh.NewOption("Torque off (move by hand)", "torque-off"),
						huh.NewOption("Torque on (lock)", "torque-on"),
						huh.NewOption("Read current position", "read"),
						huh.NewOption("Save current position", "save"),
						huh.NewOption("List saved positions", "list"),
						huh.NewOption("Recall saved position", "recall"),
						huh.NewOption("Delete saved position", "delete"),
						huh.NewOption("Phone holder...", "phone"),
						huh.NewOption("Move to init pose", "init"),
						huh.NewOption("Send raw command", "raw"),
						huh.NewOption("Quit", "quit"),
					).
					Value(&choice),
			),
		)
		if err := form.Run(); err != nil {
			return nil
		}

		switch choice {
		case "torque-off", "torque-on", "init":
			printOutcome(runMenuAction(ch, choice))
		case "read":
			c.readPosition(ch)
		case "save":
			c.savePosition(ch, store)
		case "list":
			c.listPositions(store)
		case "recall":
			if name, ok := pickPreset(store, "Recall which position?"); ok {
				p, _ := store.Get(name)
				if err := ch.MoveTo(p); err != nil {
					fmt.Println("move failed:", err)
				} else {
					fmt.Println(successStyle.Render("Moving to '" + name + "'"))
				}
			}
		case "delete":
			if name, ok := pickPreset(store, "Delete which position?"); ok {
				store.Delete(name)
				if err := store.Save(); err != nil {
					fmt.Println("save failed:", err)
				} else {
					fmt.Println("Deleted '" + name + "'")
				}
			}
		case "phone":
			c.phoneMenu(ch)
		case "raw":
			c.rawCommand(ch)
		case "quit":
			return nil
		}
		fmt.Println()
	}
}

// armCommander is the slice of the channel the one-shot menu actions use.
type armCommander interface {
	TorqueEnable(on bool) error
	MoveToInit() error
	PhoneMode(mode string) error
	PhoneAngle(deg float64) error
	PhoneTorque(on bool) error
}

// runMenuAction executes a one-shot arm action and returns the confirmation
// line to print.
func runMenuAction(arm armCommander, choice string) (string, error) {
	switch choice {
	case "torque-off":
		if err := arm.TorqueEnable(false); err != nil {
			return "", err
		}
		return "Torque off - the arm can be posed by hand", nil
	case "torque-on":
		if err := arm.TorqueEnable(true); err != nil {
			return "", err
		}
		return "Torque on - arm locked", nil
	case "init":
		if err := arm.MoveToInit(); err != nil {
			return "", err
		}
		return "Moving all joints to the middle position", nil
	}
	return "", fmt.Errorf("unknown action %q", choice)
}

func runPhoneAction(arm armCommander, choice string, angle float64) (string, error) {
	switch choice {
	case "unlock":
		if err := arm.PhoneTorque(false); err != nil {
			return "", err
		}
		return "Phone holder unlocked", nil
	case "lock":
		if err := arm.PhoneTorque(true); err != nil {
			return "", err
		}
		return "Phone holder locked", nil
	case "angle":
		if err := arm.PhoneAngle(angle); err != nil {
			return "", err
		}
		return fmt.Sprintf("Rotating phone holder to %.0f°", angle), nil
	default:
		if err := arm.PhoneMode(choice); err != nil {
			return "", err
		}
		return "Phone holder mode: " + choice, nil
	}
}

func printOutcome(msg string, err error) {
	if err != nil {
		fmt.Println("command failed:", err)
		return
	}
	fmt.Println(msg)
}

func (c *MenuCommand) readPosition(ch *roarm.Channel) {
	snap, ok := ch.QueryPosition()
	if !ok {
		fmt.Println("no position report from the arm")
		return
	}
	fmt.Printf("  base:     %7.1f°\n", snap.Base)
	fmt.Printf("  shoulder: %7.1f°\n", snap.Shoulder)
	fmt.Printf("  elbow:    %7.1f°\n", snap.Elbow)
	fmt.Printf("  hand:     %7.1f°\n", snap.Hand)
	if snap.HasPhone {
		fmt.Printf("  phone:    %7.1f°\n", snap.Phone)
	}
}

func (c *MenuCommand) savePosition(ch *roarm.Channel, store *roarm.PresetStore) {
	snap, ok := ch.QueryPosition()
	if !ok {
		fmt.Println("cannot save - failed to read position")
		return
	}

	var name string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Position name").
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("name cannot be empty")
					}
					return nil
				}).
				Value(&name),
		),
	)
	if err := form.Run(); err != nil {
		return
	}

	store.Put(name, roarm.PresetFromSnapshot(snap))
	if err := store.Save(); err != nil {
		fmt.Println("save failed:", err)
		return
	}
	fmt.Println(successStyle.Render("Saved '" + name + "'"))
}

func (c *MenuCommand) listPositions(store *roarm.PresetStore) {
	names := store.Names()
	if len(names) == 0 {
		fmt.Println(dimStyle.Render("  (no saved positions)"))
		return
	}
	for _, name := range names {
		p, _ := store.Get(name)
		line := fmt.Sprintf("  %-16s b:%6.1f° s:%6.1f° e:%6.1f° t:%6.1f°",
			name, p.Base, p.Shoulder, p.Elbow, p.Hand)
		if p.Phone != nil {
			line += fmt.Sprintf(" p:%5.1f°", *p.Phone)
		}
		fmt.Println(line)
	}
}

func pickPreset(store *roarm.PresetStore, title string) (string, bool) {
	names := store.Names()
	if len(names) == 0 {
		fmt.Println(dimStyle.Render("  (no saved positions)"))
		return "", false
	}

	options := make([]huh.Option[string], 0, len(names)+1)
	for _, name := range names {
		options = append(options, huh.NewOption(name, name))
	}
	options = append(options, huh.NewOption("(cancel)", ""))

	var name string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title(title).Options(options...).Value(&name),
		),
	)
	if err := form.Run(); err != nil || name == "" {
		return "", false
	}
	return name, true
}

func (c *MenuCommand) phoneMenu(ch *roarm.Channel) {
	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Phone holder").
				Options(
					huh.NewOption("Portrait (0°)", "portrait"),
					huh.NewOption("Landscape (90°)", "landscape"),
					huh.NewOption("Inverted portrait (180°)", "portrait_inv"),
					huh.NewOption("Inverted landscape (270°)", "landscape_inv"),
					huh.NewOption("Unlock torque", "unlock"),
					huh.NewOption("Lock torque", "lock"),
					huh.NewOption("Custom angle", "angle"),
					huh.NewOption("(back)", ""),
				).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil || choice == "" {
		return
	}

	var angle float64
	if choice == "angle" {
		var input string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Angle (0-360)").
					Validate(func(s string) error {
						v, err := strconv.ParseFloat(s, 64)
						if err != nil || v < 0 || v > 360 {
							return fmt.Errorf("enter a number between 0 and 360")
						}
						return nil
					}).
					Value(&input),
			),
		)
		if err := form.Run(); err != nil {
			return
		}
		angle, _ = strconv.ParseFloat(input, 64)
	}
	printOutcome(runPhoneAction(ch, choice, angle))
}

func (c *MenuCommand) rawCommand(ch *roarm.Channel) {
	var input string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("JSON command").
				Placeholder(`{"T":105}`).
				Validate(func(s string) error {
					if !json.Valid([]byte(s)) {
						return fmt.Errorf("invalid JSON")
					}
					return nil
				}).
				Value(&input),
		),
	)
	if err := form.Run(); err != nil {
		return
	}
	replies, err := ch.SendRaw([]byte(input))
	if err != nil {
		fmt.Println("send failed:", err)
		return
	}
	if len(replies) == 0 {
		fmt.Println(dimStyle.Render("(no reply)"))
		return
	}
	for _, line := range replies {
		fmt.Println(line)
	}
}
