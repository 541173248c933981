// Package policy turns a classifier probability into the final risk
// decision. Safety overrides sit above the model: a known-dangerous
// physical state is never reported as Normal because the statistics
// disagree.
package policy

import (
	"log/slog"

	"voltguard/internal/reconcile"
)

// Status and risk level labels, as serialized to callers.
const (
	StatusNormal        = "Normal"
	StatusNeedAttention = "Need Attention"
	RiskLow             = "Low"
	RiskHigh            = "High"
)

// Limit is a hard physical safety limit for one canonical base signal.
type Limit struct {
	Signal string  `yaml:"signal" json:"signal"`
	Max    float64 `yaml:"max" json:"max"`
}

// Config holds the escalation constants. Immutable after construction.
type Config struct {
	// DecisionThreshold is the single probability cutoff between Normal
	// and Need Attention. One value, applied consistently.
	DecisionThreshold float64 `yaml:"decision_threshold" json:"decision_threshold"`
	// OverrideFloor is the minimum effective probability once any safety
	// limit is breached.
	OverrideFloor float64 `yaml:"override_floor" json:"override_floor"`
	// SafetyLimits are the hard, model-independent physical limits.
	SafetyLimits []Limit `yaml:"safety_limits" json:"safety_limits"`
}

// DefaultConfig returns the calibrated escalation defaults.
func DefaultConfig() Config {
	return Config{
		DecisionThreshold: 0.60,
		OverrideFloor:     0.95,
		SafetyLimits: []Limit{
			{Signal: "avg_peak_temp", Max: 80},
			{Signal: "voltage_instability", Max: 1.0},
			{Signal: "error_rate", Max: 50},
		},
	}
}

// Decision is the outcome of classifying one record.
type Decision struct {
	Status      string
	RiskLevel   string
	Probability float64 // possibly raised by a safety override
	Overridden  bool
}

// Policy applies the escalation rules. Stateless: each record is decided
// independently of any other in the batch.
type Policy struct {
	cfg Config
	log *slog.Logger
}

// New builds a policy.
func New(cfg Config, log *slog.Logger) *Policy {
	if log == nil {
		log = slog.Default()
	}
	return &Policy{cfg: cfg, log: log}
}

// Classify maps a raw probability and the record's aligned vector to the
// final status and risk level.
func (p *Policy) Classify(prob float64, vec reconcile.Vector) Decision {
	d := Decision{Probability: prob}

	for _, lim := range p.cfg.SafetyLimits {
		v, ok := vec.Value(lim.Signal)
		if !ok || v <= lim.Max {
			continue
		}
		if d.Probability < p.cfg.OverrideFloor {
			d.Probability = p.cfg.OverrideFloor
		}
		d.Overridden = true
		p.log.Warn("safety override engaged",
			"signal", lim.Signal, "value", v, "limit", lim.Max, "raw_probability", prob)
		break
	}

	if d.Probability > p.cfg.DecisionThreshold {
		d.Status = StatusNeedAttention
		d.RiskLevel = RiskHigh
	} else {
		d.Status = StatusNormal
		d.RiskLevel = RiskLow
	}
	return d
}
