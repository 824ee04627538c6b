package roarm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// ChannelConfig holds connection parameters for a RoArm serial link.
// Zero fields fall back to defaults matching the stock firmware.
type ChannelConfig struct {
	Port        string
	BaudRate    int           // default 115200
	ReadTimeout time.Duration // per-read timeout, default 2s
	SendSettle  time.Duration // wait after a fire-and-forget command, default 400ms
	QuerySettle time.Duration // wait for a position reply, default 600ms
	BootDelay   time.Duration // wait after opening the port, default 2s
}

func (cfg *ChannelConfig) applyDefaults() {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.SendSettle == 0 {
		cfg.SendSettle = 400 * time.Millisecond
	}
	if cfg.QuerySettle == 0 {
		cfg.QuerySettle = 600 * time.Millisecond
	}
}

// Channel is an exclusively-owned serial link to the arm's firmware.
//
// The protocol has no request IDs, so command/response pairing only works
// if nothing else touches the port: every send flushes stale input first
// and a Channel must never be shared between goroutines.
type Channel struct {
	port serial.Port
	cfg  ChannelConfig
}

// OpenChannel opens the serial port and waits for the firmware to boot.
// DTR/RTS are deasserted because the ESP32 on the arm resets when they
// toggle.
func OpenChannel(cfg ChannelConfig) (*Channel, error) {
	cfg.applyDefaults()

	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	port.SetDTR(false)
	port.SetRTS(false)

	if cfg.BootDelay > 0 {
		time.Sleep(cfg.BootDelay)
	}

	return &Channel{port: port, cfg: cfg}, nil
}

// NewChannel wraps an already-open port. Useful for tests and for callers
// that need non-standard port setup.
func NewChannel(port serial.Port, cfg ChannelConfig) *Channel {
	cfg.applyDefaults()
	return &Channel{port: port, cfg: cfg}
}

// Close closes the underlying port.
func (c *Channel) Close() error {
	return c.port.Close()
}

// Flush discards any buffered input so the next read sees only replies to
// the next command.
func (c *Channel) Flush() error {
	if err := c.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}
	c.drain()
	return nil
}

// drain reads and discards input until the port goes quiet.
func (c *Channel) drain() {
	buf := make([]byte, 256)
	c.port.SetReadTimeout(50 * time.Millisecond)
	defer c.port.SetReadTimeout(c.cfg.ReadTimeout)
	for {
		n, err := c.port.Read(buf)
		if n == 0 || err != nil {
			return
		}
	}
}

// Send flushes stale input, writes one JSON command line and discards the
// echo. Fire and forget: the firmware acks most commands with chatter we
// do not care about.
func (c *Channel) Send(v any) error {
	if err := c.Flush(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	if _, err := c.port.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	c.port.Drain()
	if c.cfg.SendSettle > 0 {
		time.Sleep(c.cfg.SendSettle)
	}
	c.drain()
	return nil
}

// SendRaw writes an already-encoded command line and returns whatever
// reply lines the firmware buffered in response. Unlike Send it keeps the
// replies instead of draining them; the raw passthrough shows them to the
// operator.
func (c *Channel) SendRaw(cmd []byte) ([]string, error) {
	if err := c.Flush(); err != nil {
		return nil, err
	}
	line := append([]byte(nil), bytes.TrimSpace(cmd)...)
	if _, err := c.port.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}
	c.port.Drain()
	if c.cfg.QuerySettle > 0 {
		time.Sleep(c.cfg.QuerySettle)
	}
	var replies []string
	for _, l := range c.readLines() {
		if s := strings.TrimSpace(string(l)); s != "" {
			replies = append(replies, s)
		}
	}
	return replies, nil
}

// readLines reads everything buffered on the port until it goes quiet and
// returns the complete lines. A trailing partial line is dropped.
func (c *Channel) readLines() [][]byte {
	var raw []byte
	buf := make([]byte, 256)
	c.port.SetReadTimeout(50 * time.Millisecond)
	defer c.port.SetReadTimeout(c.cfg.ReadTimeout)
	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			raw = append(raw, buf[:n]...)
		}
		if n == 0 || err != nil {
			break
		}
	}
	if i := bytes.LastIndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	} else {
		return nil
	}
	return bytes.Split(raw, []byte{'\n'})
}

// Ports lists serial ports that could plausibly be a RoArm, skipping
// Bluetooth devices on macOS.
func Ports() ([]string, error) {
	all, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	var ports []string
	for _, p := range all {
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		ports = append(ports, p)
	}
	return ports, nil
}
