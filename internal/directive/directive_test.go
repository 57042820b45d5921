package directive

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightsup/internal/sched"
	"flightsup/internal/vehicle"
)

type call struct {
	name     string
	priority sched.Priority
	args     []any
}

type recordingTarget struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (r *recordingTarget) add(name string, p sched.Priority, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{name, p, args})
	return r.err
}

func (r *recordingTarget) all() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recordingTarget) AddTakeoffTask(alt float64, p sched.Priority) error {
	return r.add("takeoff", p, alt)
}

func (r *recordingTarget) AddHoverTask(alt float64, d time.Duration, p sched.Priority) error {
	return r.add("hover", p, alt, d)
}

func (r *recordingTarget) AddLinearMovementTask(dir vehicle.Direction, d time.Duration, p sched.Priority) error {
	return r.add("linear", p, dir, d)
}

func (r *recordingTarget) AddMoveTask(vec vehicle.Vector, d time.Duration, p sched.Priority) error {
	return r.add("move", p, vec, d)
}

func (r *recordingTarget) AddLandTask(p sched.Priority) error { return r.add("land", p) }

func (r *recordingTarget) AddYawTask(heading float64, p sched.Priority) error {
	return r.add("yaw", p, heading)
}

func (r *recordingTarget) AddExitTask(p sched.Priority) error { return r.add("exit", p) }

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    Directive
		wantErr bool
	}{
		{"takeoff 1.5", Directive{Command: "takeoff", Altitude: 1.5}, false},
		{"TAKEOFF 1", Directive{Command: "takeoff", Altitude: 1}, false},
		{"hover 5 low", Directive{Command: "hover", Duration: 5, Priority: "low"}, false},
		{"hover 5", Directive{Command: "hover", Duration: 5}, false},
		{"move forward 2 med", Directive{Command: "move", Direction: "forward", Duration: 2, Priority: "med"}, false},
		{"yaw 90", Directive{Command: "yaw", Heading: 90}, false},
		{"land high", Directive{Command: "land", Priority: "high"}, false},
		{"land", Directive{Command: "land"}, false},
		{"exit", Directive{Command: "exit"}, false},
		{"", Directive{}, true},
		{"takeoff", Directive{}, true},
		{"takeoff high", Directive{}, true},
		{"takeoff -1", Directive{}, true},
		{"hover 0 low", Directive{}, true},
		{"move sideways 2", Directive{}, true},
		{"move forward 2 urgent", Directive{}, true},
		{"exit now", Directive{}, true},
		{"barrel-roll", Directive{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDirective)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyDefaultsAndRouting(t *testing.T) {
	tgt := &recordingTarget{}
	ds := []Directive{
		{Command: "takeoff", Altitude: 1},
		{Command: "hover", Duration: 2.5},
		{Command: "move", Direction: "Left", Duration: 1},
		{Command: "move", North: 1, East: 1, Duration: 1, Priority: "high"},
		{Command: "yaw", Heading: 270},
		{Command: "land"},
		{Command: "exit"},
	}
	for _, d := range ds {
		require.NoError(t, Apply(d, tgt))
	}

	calls := tgt.all()
	require.Len(t, calls, len(ds))
	assert.Equal(t, call{"takeoff", sched.High, []any{1.0}}, calls[0])
	assert.Equal(t, call{"hover", sched.Low, []any{0.0, 2500 * time.Millisecond}}, calls[1])
	assert.Equal(t, call{"linear", sched.Medium, []any{vehicle.Left, time.Second}}, calls[2])
	assert.Equal(t, call{"move", sched.High, []any{vehicle.Vector{North: 1, East: 1}, time.Second}}, calls[3])
	assert.Equal(t, "yaw", calls[4].name)
	assert.Equal(t, sched.Medium, calls[5].priority)
	assert.Equal(t, call{"exit", sched.High, nil}, calls[6])
}

func TestApplyRejectsInvalid(t *testing.T) {
	tgt := &recordingTarget{}
	for _, d := range []Directive{
		{Command: "fly"},
		{Command: "move", Duration: 1},
		{Command: "land", Priority: "whenever"},
	} {
		assert.ErrorIs(t, Apply(d, tgt), ErrInvalidDirective, d.Command)
	}
	assert.Empty(t, tgt.all())
}

func TestJSONCodecDecodesNetworkShape(t *testing.T) {
	d, err := JSONCodec{}.Decode([]byte(`{"command":"move","north":1,"east":0,"down":0,"duration":2}`))
	require.NoError(t, err)
	assert.Equal(t, Directive{Command: "move", North: 1, Duration: 2}, d)

	_, err = JSONCodec{}.Decode([]byte(`{"command":`))
	assert.ErrorIs(t, err, ErrInvalidDirective)
}

func TestMsgpackCodec(t *testing.T) {
	in := Directive{Command: "yaw", Heading: 45, Priority: "low"}
	data, err := MsgpackCodec{}.Encode(in)
	require.NoError(t, err)
	out, err := MsgpackCodec{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = MsgpackCodec{}.Decode([]byte{0xc1})
	assert.ErrorIs(t, err, ErrInvalidDirective)
}

func TestCodecFor(t *testing.T) {
	c, err := CodecFor("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())
	c, err = CodecFor("MSGPACK")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", c.Name())
	_, err = CodecFor("xml")
	assert.Error(t, err)
}

func TestListener(t *testing.T) {
	tgt := &recordingTarget{}
	l, err := Listen(ChannelConfig{Listen: "127.0.0.1:0", Codec: "json"}, tgt, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	conn, err := net.Dial("udp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	send := func(payload string) string {
		_, err := conn.Write([]byte(payload))
		require.NoError(t, err)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		buf := make([]byte, 512)
		n, err := conn.Read(buf)
		require.NoError(t, err)
		return string(buf[:n])
	}

	assert.Equal(t, "ok", send(`{"command":"takeoff","altitude":1}`))
	assert.True(t, strings.HasPrefix(send(`{"command":"takeoff"}`), "error: "))
	assert.True(t, strings.HasPrefix(send(`not json`), "error: "))
	assert.Equal(t, "ok", send(`{"command":"land","priority":"high"}`))

	calls := tgt.all()
	require.Len(t, calls, 2)
	assert.Equal(t, "takeoff", calls[0].name)
	assert.Equal(t, "land", calls[1].name)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestConsole(t *testing.T) {
	tgt := &recordingTarget{}
	var out bytes.Buffer
	c := &Console{
		In:     strings.NewReader("takeoff 1\n\nbogus\nhelp\nexit\nland\n"),
		Out:    &out,
		Target: tgt,
	}
	require.NoError(t, c.Run(context.Background()))

	calls := tgt.all()
	require.Len(t, calls, 2)
	assert.Equal(t, "takeoff", calls[0].name)
	assert.Equal(t, call{"exit", sched.High, nil}, calls[1])
	assert.Contains(t, out.String(), `error: invalid directive: unknown command "bogus"`)
	assert.Contains(t, out.String(), "commands:")
	assert.Contains(t, out.String(), "exit queued")
}

func TestConsoleReportsTargetErrors(t *testing.T) {
	tgt := &recordingTarget{err: fmt.Errorf("scheduler halted")}
	var out bytes.Buffer
	c := &Console{In: strings.NewReader("land\n"), Out: &out, Target: tgt}
	require.NoError(t, c.Run(context.Background()))
	assert.Contains(t, out.String(), "error: scheduler halted")
}

func TestParseMission(t *testing.T) {
	m, err := ParseMission([]byte(`
name: hop
directives:
  - {command: takeoff, altitude: 1}
  - {command: move, direction: forward, duration: 2}
  - command: hover
    duration: 1.5
    priority: medium
  - {command: land}
`))
	require.NoError(t, err)
	assert.Equal(t, "hop", m.Name)
	require.Len(t, m.Directives, 4)
	assert.Equal(t, 1.5, m.Directives[2].Duration)

	tgt := &recordingTarget{}
	require.NoError(t, m.Submit(tgt))
	calls := tgt.all()
	require.Len(t, calls, 4)
	for _, c := range calls {
		assert.Equal(t, sched.Medium, c.priority, c.name)
	}

	m, err = ParseMission([]byte(`
priority: low
directives:
  - {command: takeoff, altitude: 1}
  - {command: land, priority: high}
`))
	require.NoError(t, err)
	tgt = &recordingTarget{}
	require.NoError(t, m.Submit(tgt))
	calls = tgt.all()
	assert.Equal(t, sched.Low, calls[0].priority)
	assert.Equal(t, sched.High, calls[1].priority)

	_, err = ParseMission([]byte("priority: urgent\ndirectives:\n  - {command: land}\n"))
	assert.ErrorIs(t, err, ErrInvalidDirective)

	_, err = ParseMission([]byte("name: empty\n"))
	assert.ErrorIs(t, err, ErrInvalidDirective)

	_, err = ParseMission([]byte("directives:\n  - {command: takeoff}\n"))
	assert.ErrorContains(t, err, "directive 1")
}
