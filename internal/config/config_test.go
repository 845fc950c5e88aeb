package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/observer"
	"github.com/abhisek/stairwise/internal/staircase"
)

func TestSchemaCompiles(t *testing.T) {
	sch, err := compiledSchema()
	require.NoError(t, err)
	require.NotNil(t, sch)

	// Second call hits the cache.
	again, err := compiledSchema()
	require.NoError(t, err)
	assert.Same(t, sch, again)
}

func TestParseEmptyReturnsDefaults(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), f)

	f, err = Parse([]byte("   \n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	data := []byte(`
participant:
  id: P07
  age: 23
  sex: FEMALE
staircase:
  n_up: 2
  step: 0.5
observer:
  threshold: 6.5
  min_latency: 200ms
`)
	f, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, experiment.Participant{ID: "P07", Age: 23, Sex: experiment.SexFemale}, f.Participant)
	assert.Equal(t, 2, f.Staircase.NUp)
	assert.Equal(t, 0.5, f.Staircase.Step)
	assert.Equal(t, staircase.DefaultConfig().NDown, f.Staircase.NDown)
	assert.Equal(t, staircase.DefaultConfig().MaxReversals, f.Staircase.MaxReversals)
	assert.Equal(t, experiment.DefaultConfig().Training, f.Training)
	assert.Equal(t, 6.5, f.Observer.Threshold)
	assert.Equal(t, 200*time.Millisecond, f.Observer.MinLatency)
	assert.Equal(t, observer.DefaultSimulatedConfig().MaxLatency, f.Observer.MaxLatency)
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "colour: red\n"},
		{"zero step", "staircase:\n  step: 0\n"},
		{"negative reps", "training:\n  reps: -1\n"},
		{"string count", "staircase:\n  n_up: three\n"},
		{"bad sex", "participant:\n  sex: maybe\n"},
		{"bad polarity", "observer:\n  polarity: up\n"},
		{"bad latency", "observer:\n  min_latency: soon\n"},
		{"not a mapping", "- 1\n- 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			var invalid *InvalidFileError
			assert.True(t, errors.As(err, &invalid), "got %T", err)
		})
	}
}

func TestParseRejectsSemanticErrors(t *testing.T) {
	// Passes the schema but guess + lapse leaves no room for the function.
	_, err := Parse([]byte("observer:\n  guess: 0.6\n  lapse: 0.5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guess + lapse")
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("staircase: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml")
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(Default())
	require.NoError(t, err)
	assert.Contains(t, string(data), "n_up: 3")
	assert.NotContains(t, string(data), "participant")

	f, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
}

func TestWriteDefaultAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stairwise.yaml")

	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false))
	require.NoError(t, WriteDefault(path, true))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
}

func TestLoadReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_trials: -3\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	var invalid *InvalidFileError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, path, invalid.Path)
	assert.Contains(t, err.Error(), path)
}

func TestResolveOrder(t *testing.T) {
	dir := t.TempDir()
	flagPath := filepath.Join(dir, "flag.yaml")
	envPath := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(flagPath, []byte("max_trials: 11\n"), 0o644))
	require.NoError(t, os.WriteFile(envPath, []byte("max_trials: 22\n"), 0o644))

	t.Setenv(EnvVar, "")
	f, used, err := Resolve("")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, Default(), f)

	t.Setenv(EnvVar, envPath)
	f, used, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, envPath, used)
	assert.Equal(t, 22, f.MaxTrials)

	f, used, err = Resolve(flagPath)
	require.NoError(t, err)
	assert.Equal(t, flagPath, used)
	assert.Equal(t, 11, f.MaxTrials)
}
