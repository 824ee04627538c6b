package roarm

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort implements serial.Port in memory. Reads return whatever the
// test queued in; an empty buffer reads as a timeout (n=0, no error),
// matching go.bug.st/serial semantics with a read timeout set.
type fakePort struct {
	in      bytes.Buffer // device -> host
	out     bytes.Buffer // host -> device
	onWrite func(p []byte)
	closed  bool
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.in.Len() == 0 {
		return 0, nil
	}
	return f.in.Read(p)
}

func (f *fakePort) Write(p []byte) (int, error) {
	n, err := f.out.Write(p)
	if f.onWrite != nil {
		f.onWrite(p)
	}
	return n, err
}

func (f *fakePort) Close() error                    { f.closed = true; return nil }
func (f *fakePort) SetMode(mode *serial.Mode) error { return nil }
func (f *fakePort) Drain() error                    { return nil }
func (f *fakePort) ResetInputBuffer() error         { f.in.Reset(); return nil }
func (f *fakePort) ResetOutputBuffer() error        { f.out.Reset(); return nil }
func (f *fakePort) SetDTR(dtr bool) error           { return nil }
func (f *fakePort) SetRTS(rts bool) error           { return nil }
func (f *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return nil, nil
}
func (f *fakePort) SetReadTimeout(t time.Duration) error { return nil }
func (f *fakePort) Break(d time.Duration) error          { return nil }

func fastChannelConfig() ChannelConfig {
	return ChannelConfig{
		SendSettle:  time.Nanosecond,
		QuerySettle: time.Nanosecond,
	}
}

func TestChannelSendWritesCommandLine(t *testing.T) {
	port := &fakePort{}
	c := NewChannel(port, fastChannelConfig())

	err := c.SetTorqueLimits(650, 500)
	require.NoError(t, err)

	assert.Equal(t, `{"T":112,"mode":1,"b":50,"s":650,"e":500,"h":50}`+"\n", port.out.String())
}

func TestChannelSendFlushesStaleInput(t *testing.T) {
	port := &fakePort{}
	port.in.WriteString(`{"T":1051,"s":99,"e":99}` + "\n") // reply to an earlier command

	c := NewChannel(port, fastChannelConfig())
	require.NoError(t, c.TorqueEnable(true))

	assert.Zero(t, port.in.Len(), "stale input must be drained before sending")
	assert.Equal(t, `{"T":210,"cmd":1}`+"\n", port.out.String())
}

func TestChannelSendRawReturnsReplies(t *testing.T) {
	port := &fakePort{}
	port.in.WriteString("stale chatter\n") // must be flushed, not reported
	port.onWrite = func(p []byte) {
		assert.Equal(t, `{"T":105}`+"\n", string(p))
		port.in.WriteString(`{"T":1051,"s":10,"e":20}` + "\n")
		port.in.WriteString("ok\n")
	}

	c := NewChannel(port, fastChannelConfig())
	replies, err := c.SendRaw([]byte(` {"T":105} `))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"T":1051,"s":10,"e":20}`, "ok"}, replies)
}

func TestChannelSendRawNoReply(t *testing.T) {
	port := &fakePort{}
	c := NewChannel(port, fastChannelConfig())

	replies, err := c.SendRaw([]byte(`{"T":109}`))
	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.Equal(t, `{"T":109}`+"\n", port.out.String())
}

func TestChannelQueryPosition(t *testing.T) {
	port := &fakePort{}
	port.onWrite = func(p []byte) {
		assert.Equal(t, `{"T":105}`+"\n", string(p))
		// The firmware interleaves chatter with the actual report.
		port.in.WriteString("RoArm ready\n")
		port.in.WriteString(`{"T":1003,"msg":"heartbeat"}` + "\n")
		port.in.WriteString(`{"T":1051,"b":0.5,"s":-30.1,"e":45.2,"t":1.0,"torS":130,"torE":70}` + "\n")
		port.in.WriteString("trailing partial without newline")
	}

	c := NewChannel(port, fastChannelConfig())
	snap, ok := c.QueryPosition()
	require.True(t, ok)

	assert.Equal(t, -30.1, snap.Shoulder)
	assert.Equal(t, 45.2, snap.Elbow)
	assert.Equal(t, 0.5, snap.Base)
	assert.Equal(t, 1.0, snap.Hand)
	assert.Equal(t, 130, snap.ShoulderTorque)
	assert.Equal(t, 70, snap.ElbowTorque)
	assert.False(t, snap.HasPhone)
	assert.False(t, snap.Time.IsZero())
}

func TestChannelQueryPositionNoReply(t *testing.T) {
	port := &fakePort{}
	port.onWrite = func(p []byte) {
		port.in.WriteString("log line, not a report\n")
	}

	c := NewChannel(port, fastChannelConfig())
	_, ok := c.QueryPosition()
	assert.False(t, ok)
}

func TestChannelSetGainCoversAllJoints(t *testing.T) {
	port := &fakePort{}
	c := NewChannel(port, fastChannelConfig())

	require.NoError(t, c.SetGain(8))

	want := `{"T":108,"joint":1,"p":8,"i":0}` + "\n" +
		`{"T":108,"joint":2,"p":8,"i":0}` + "\n" +
		`{"T":108,"joint":3,"p":8,"i":0}` + "\n" +
		`{"T":108,"joint":4,"p":8,"i":0}` + "\n"
	assert.Equal(t, want, port.out.String())
}

func TestChannelDisableAndReset(t *testing.T) {
	port := &fakePort{}
	c := NewChannel(port, fastChannelConfig())

	require.NoError(t, c.DisableAndReset())

	want := `{"T":112,"mode":0,"b":0,"s":0,"e":0,"h":0}` + "\n" + `{"T":109}` + "\n"
	assert.Equal(t, want, port.out.String())
}

func TestChannelMoveJointConvertsToRadians(t *testing.T) {
	port := &fakePort{}
	c := NewChannel(port, fastChannelConfig())

	require.NoError(t, c.MoveJoint(Shoulder, -30, 500, 50))

	out := port.out.String()
	assert.Contains(t, out, `"T":101`)
	assert.Contains(t, out, `"joint":2`)
	assert.Contains(t, out, `"rad":-0.523`)
}

func TestChannelClose(t *testing.T) {
	port := &fakePort{}
	c := NewChannel(port, fastChannelConfig())
	require.NoError(t, c.Close())
	assert.True(t, port.closed)
}
