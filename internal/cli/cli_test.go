package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(bytes.NewReader(nil))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fastConfig = `
scheduler:
  tick_ms: 10
task:
  takeoff:
    timeout_ticks: 500
    stabilize_ticks: 5
safety:
  period_ms: 20
log:
  stderr: false
sim:
  step_ms: 5
  climb_gain: 10
  land_rate: 2
`

func TestConfigCommandPrintsDefaults(t *testing.T) {
	out, err := execute(t, "config", "--config", filepath.Join(t.TempDir(), "none.yml"))
	require.NoError(t, err)
	assert.Contains(t, out, "tick_ms: 100")
	assert.Contains(t, out, "preemption: insert-ahead")
	assert.Contains(t, out, "codec: json")
}

func TestConfigCommandAppliesFileAndFlags(t *testing.T) {
	path := writeFile(t, "config.yml", fastConfig)
	out, err := execute(t, "config", "-c", path, "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "tick_ms: 10\n")
	assert.Contains(t, out, "level: debug")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "config", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestRunNeedsSimulatorWithoutHardware(t *testing.T) {
	path := writeFile(t, "config.yml", fastConfig)
	_, err := execute(t, "run", "-c", path, "--no-console")
	assert.ErrorContains(t, err, "--sim")
}

func TestRunRejectsUnknownCodec(t *testing.T) {
	path := writeFile(t, "config.yml", fastConfig)
	_, err := execute(t, "run", "-c", path, "--sim", "--codec", "xml")
	assert.ErrorContains(t, err, "unknown codec")
}

// syncBuffer is written by the console goroutine while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunConsoleExitOnGround(t *testing.T) {
	path := writeFile(t, "config.yml", fastConfig)
	root := NewRootCommand("test")
	out := &syncBuffer{}
	root.SetOut(out)
	root.SetIn(bytes.NewBufferString("takeoff\nexit\n"))
	root.SetArgs([]string{"run", "-c", path, "--sim"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "error: invalid directive")
}

func TestMissionCommand(t *testing.T) {
	cfg := writeFile(t, "config.yml", fastConfig)
	mission := writeFile(t, "hop.yaml", `
name: hop
directives:
  - {command: takeoff, altitude: 1}
  - {command: yaw, heading: 15}
  - {command: land}
`)
	_, err := execute(t, "mission", mission, "-c", cfg, "--sim")
	assert.NoError(t, err)
}

func TestMissionCommandErrors(t *testing.T) {
	_, err := execute(t, "mission", filepath.Join(t.TempDir(), "absent.yaml"), "--sim")
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "directives:\n  - {command: fly}\n")
	_, err = execute(t, "mission", bad, "--sim")
	assert.ErrorContains(t, err, "unknown command")

	_, err = execute(t, "mission")
	assert.Error(t, err)
}
