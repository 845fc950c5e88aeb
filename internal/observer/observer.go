// Package observer provides automatic responders for headless runs: a
// simulated participant with a psychometric function and a scripted one
// that replays fixed answers.
package observer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/staircase"
)

// Polarity tells which end of the intensity scale is easier.
type Polarity string

const (
	// PolarityEasier means higher intensities are easier to judge.
	PolarityEasier Polarity = "easier"
	// PolarityHarder means higher intensities are harder to judge.
	PolarityHarder Polarity = "harder"
)

// ParsePolarity converts a flag or config value into a Polarity.
func ParsePolarity(s string) (Polarity, error) {
	switch Polarity(s) {
	case PolarityEasier, PolarityHarder:
		return Polarity(s), nil
	case "":
		return PolarityEasier, nil
	default:
		return "", fmt.Errorf("unknown polarity %q (want easier or harder)", s)
	}
}

// SimulatedConfig parameterizes a simulated observer.
type SimulatedConfig struct {
	Threshold  float64       `json:"threshold" yaml:"threshold"`
	Spread     float64       `json:"spread" yaml:"spread"` // logistic slope parameter, > 0
	Guess      float64       `json:"guess" yaml:"guess"`   // lower asymptote
	Lapse      float64       `json:"lapse" yaml:"lapse"`   // 1 - upper asymptote
	Polarity   Polarity      `json:"polarity" yaml:"polarity"`
	Seed       uint64        `json:"seed" yaml:"seed"`
	MinLatency time.Duration `json:"min_latency" yaml:"min_latency"`
	MaxLatency time.Duration `json:"max_latency" yaml:"max_latency"`
}

// DefaultSimulatedConfig returns a two-alternative observer with its
// threshold at 8. Higher intensities are harder, so the staircase's upward
// step after correct answers moves toward the threshold.
func DefaultSimulatedConfig() SimulatedConfig {
	return SimulatedConfig{
		Threshold:  8,
		Spread:     1,
		Guess:      0.5,
		Lapse:      0.02,
		Polarity:   PolarityHarder,
		Seed:       1,
		MinLatency: 300 * time.Millisecond,
		MaxLatency: 900 * time.Millisecond,
	}
}

// Validate checks the psychometric parameters.
func (c SimulatedConfig) Validate() error {
	switch {
	case !(c.Spread > 0):
		return fmt.Errorf("spread must be positive, got %v", c.Spread)
	case c.Guess < 0 || c.Guess >= 1:
		return fmt.Errorf("guess rate must be in [0, 1), got %v", c.Guess)
	case c.Lapse < 0 || c.Lapse >= 1:
		return fmt.Errorf("lapse rate must be in [0, 1), got %v", c.Lapse)
	case c.Guess+c.Lapse >= 1:
		return fmt.Errorf("guess + lapse must be below 1, got %v", c.Guess+c.Lapse)
	case c.MinLatency < 0 || c.MaxLatency < c.MinLatency:
		return fmt.Errorf("latency range [%v, %v] is invalid", c.MinLatency, c.MaxLatency)
	}
	if _, err := ParsePolarity(string(c.Polarity)); err != nil {
		return err
	}
	return nil
}

// Simulated answers trials according to a logistic psychometric function
// with guess and lapse rates.
type Simulated struct {
	cfg SimulatedConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated creates a simulated observer. The same seed always produces
// the same sequence of answers.
func NewSimulated(cfg SimulatedConfig) (*Simulated, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Polarity == "" {
		cfg.Polarity = PolarityEasier
	}
	return &Simulated{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}, nil
}

// PCorrect returns the probability of a correct answer at intensity x:
// guess + (1 - guess - lapse) * F(x).
func (s *Simulated) PCorrect(x float64) float64 {
	z := (x - s.cfg.Threshold) / s.cfg.Spread
	if s.cfg.Polarity == PolarityHarder {
		z = -z
	}
	f := 1 / (1 + math.Exp(-z))
	return s.cfg.Guess + (1-s.cfg.Guess-s.cfg.Lapse)*f
}

// Respond draws an answer for t.
func (s *Simulated) Respond(ctx context.Context, t experiment.Trial) (experiment.Response, error) {
	if err := ctx.Err(); err != nil {
		return experiment.Response{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	correct := s.rng.Float64() < s.PCorrect(t.Intensity)
	latency := s.cfg.MinLatency
	if span := s.cfg.MaxLatency - s.cfg.MinLatency; span > 0 {
		latency += time.Duration(s.rng.Int64N(int64(span)))
	}
	return experiment.Response{Correct: correct, Latency: latency}, nil
}

// ErrScriptExhausted is returned by Scripted when every answer was used.
var ErrScriptExhausted = errors.New("scripted observer has no answers left")

// Scripted replays a fixed list of answers in order.
type Scripted struct {
	mu        sync.Mutex
	answers   []experiment.Response
	Presented []experiment.Trial
}

// NewScripted returns an observer replaying responses in order.
func NewScripted(responses ...experiment.Response) *Scripted {
	return &Scripted{answers: append([]experiment.Response(nil), responses...)}
}

// ParseScript reads a list of answers separated by commas or spaces. Each
// answer is an outcome accepted by staircase.ParseOutcome, or "-" or
// "timeout" for a trial left unanswered.
func ParseScript(script string) ([]experiment.Response, error) {
	fields := strings.FieldsFunc(script, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]experiment.Response, 0, len(fields))
	for i, f := range fields {
		if f == "-" || strings.EqualFold(f, "timeout") {
			out = append(out, experiment.Timeout())
			continue
		}
		o, err := staircase.ParseOutcome(f)
		if err != nil {
			return nil, fmt.Errorf("answer %d: %w", i+1, err)
		}
		out = append(out, experiment.Response{Correct: o == staircase.Correct})
	}
	if len(out) == 0 {
		return nil, errors.New("script has no answers")
	}
	return out, nil
}

// Respond returns the next scripted answer.
func (s *Scripted) Respond(ctx context.Context, t experiment.Trial) (experiment.Response, error) {
	if err := ctx.Err(); err != nil {
		return experiment.Response{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.answers) == 0 {
		return experiment.Response{}, ErrScriptExhausted
	}
	resp := s.answers[0]
	s.answers = s.answers[1:]
	s.Presented = append(s.Presented, t)
	return resp, nil
}

// Remaining returns the number of unused answers.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
