package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/NickSakito777/adapt/pkg/roarm"
)

type TuneCommand struct {
	Port      string        `long:"port" short:"p" description:"Serial port of the arm (prompts when omitted)"`
	Threshold float64       `long:"threshold" default:"5.0" description:"Stability threshold in degrees"`
	Window    time.Duration `long:"window" default:"3s" description:"Drift-monitoring window per candidate"`
	Countdown time.Duration `long:"countdown" default:"15s" description:"Time to place the load after torque release"`
}

func (c *TuneCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("A.D.A.P.T. Tune"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	ch, err := connectArm(c.Port)
	if err != nil {
		return err
	}
	defer ch.Close()

	// A dead link is the one fatal error: the procedure must not start
	// blind. Individual sample misses later on merely degrade it.
	snap, ok := ch.QueryPosition()
	if !ok {
		return fmt.Errorf("no position report from the arm; check cabling and power")
	}
	fmt.Printf("Arm responding: s=%.1f° e=%.1f° torS=%d torE=%d\n\n",
		snap.Shoulder, snap.Elbow, snap.ShoulderTorque, snap.ElbowTorque)

	cfg := roarm.DefaultTunerConfig()
	cfg.Threshold = c.Threshold
	cfg.MonitorWindow = c.Window
	cfg.ReleaseWait = c.Countdown

	res := roarm.NewTuner(ch, cfg, os.Stdout).Run()

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Results ━━━"))
	fmt.Println(renderResultTable(res))
	fmt.Println()
	fmt.Println("Apply with:")
	fmt.Printf("  {\"T\":112,\"mode\":1,\"b\":50,\"s\":%d,\"e\":%d,\"h\":50}\n",
		res.SafeShoulderTorque, res.SafeElbowTorque)
	if res.Gain != cfg.StartGain {
		fmt.Printf("  {\"T\":108,\"joint\":2,\"p\":%d,\"i\":0}\n", res.Gain)
		fmt.Printf("  {\"T\":108,\"joint\":3,\"p\":%d,\"i\":0}\n", res.Gain)
	}
	fmt.Println()
	fmt.Println(successStyle.Render("Tuning complete, torque released."))

	return nil
}

func renderResultTable(res roarm.Result) string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Setting", "Minimum", "Safe").
		Rows(
			[]string{"shoulder torque", fmt.Sprintf("%d", res.BestShoulderTorque), fmt.Sprintf("%d", res.SafeShoulderTorque)},
			[]string{"elbow torque", fmt.Sprintf("%d", res.BestElbowTorque), fmt.Sprintf("%d", res.SafeElbowTorque)},
			[]string{"gain (P)", fmt.Sprintf("%d", res.Gain), fmt.Sprintf("%d", res.Gain)},
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return cellStyle
		}).
		Render()
}
