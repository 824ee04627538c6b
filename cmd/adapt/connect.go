package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/NickSakito777/adapt/pkg/roarm"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// resolvePort returns the flag value when given, otherwise scans for
// serial ports and asks which one the arm is on.
func resolvePort(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	ports, err := roarm.Ports()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports found; is the arm plugged in?")
	}
	if len(ports) == 1 {
		return ports[0], nil
	}

	options := make([]huh.Option[string], 0, len(ports))
	for _, p := range ports {
		options = append(options, huh.NewOption(p, p))
	}

	var port string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the arm on?").
				Options(options...).
				Value(&port),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return port, nil
}

// connectArm resolves the port and opens the channel.
func connectArm(portFlag string) (*roarm.Channel, error) {
	port, err := resolvePort(portFlag)
	if err != nil {
		return nil, err
	}

	fmt.Println(dimStyle.Render("Connecting to " + port + "..."))
	ch, err := roarm.OpenChannel(roarm.ChannelConfig{Port: port})
	if err != nil {
		return nil, fmt.Errorf("connect to arm: %w", err)
	}
	return ch, nil
}
