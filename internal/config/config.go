// Package config loads the stairwise YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/observer"
	"github.com/abhisek/stairwise/internal/staircase"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "STAIRWISE_CONFIG"

// File is the content of a configuration file. Missing sections keep their
// defaults.
type File struct {
	Participant experiment.Participant    `yaml:"participant,omitempty"`
	Training    experiment.TrainingConfig `yaml:"training"`
	Staircase   staircase.Config          `yaml:"staircase"`
	MaxTrials   int                       `yaml:"max_trials"`
	Observer    observer.SimulatedConfig  `yaml:"observer"`
}

// Default returns the built-in configuration.
func Default() File {
	exp := experiment.DefaultConfig()
	return File{
		Training:  exp.Training,
		Staircase: exp.Staircase,
		MaxTrials: exp.MaxTrials,
		Observer:  observer.DefaultSimulatedConfig(),
	}
}

// Experiment returns the run configuration held by f.
func (f File) Experiment() experiment.Config {
	return experiment.Config{
		Training:  f.Training,
		Staircase: f.Staircase,
		MaxTrials: f.MaxTrials,
	}
}

// Validate checks the experiment and observer sections.
func (f File) Validate() error {
	if err := f.Experiment().Validate(); err != nil {
		return err
	}
	if err := f.Observer.Validate(); err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	return nil
}

// InvalidFileError reports a configuration file that failed to parse or
// validate.
type InvalidFileError struct {
	Path string
	Err  error
}

func (e *InvalidFileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid config: %v", e.Err)
	}
	return fmt.Sprintf("invalid config %s: %v", e.Path, e.Err)
}

func (e *InvalidFileError) Unwrap() error { return e.Err }

// Parse decodes and validates YAML configuration data. The document is
// checked against the JSON schema first, then decoded over the defaults and
// validated semantically.
func Parse(data []byte) (File, error) {
	f := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return f, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return File{}, &InvalidFileError{Err: fmt.Errorf("parse yaml: %w", err)}
	}
	if doc == nil {
		return f, nil
	}
	if err := validateDocument(doc); err != nil {
		return File{}, &InvalidFileError{Err: err}
	}

	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, &InvalidFileError{Err: fmt.Errorf("decode yaml: %w", err)}
	}
	if err := f.Validate(); err != nil {
		return File{}, &InvalidFileError{Err: err}
	}
	return f, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		var invalid *InvalidFileError
		if errors.As(err, &invalid) {
			invalid.Path = path
		}
		return File{}, err
	}
	return f, nil
}

// Resolve loads the configuration from flagPath, then from $STAIRWISE_CONFIG,
// and falls back to the defaults. It also returns the path that was used,
// empty for the defaults.
func Resolve(flagPath string) (File, string, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), "", nil
	}
	f, err := Load(path)
	if err != nil {
		return File{}, path, err
	}
	return f, path, nil
}

// Marshal encodes f as YAML.
func Marshal(f File) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# stairwise configuration\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	data, err := Marshal(Default())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
