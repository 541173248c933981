// Package reconcile turns loosely-typed telemetry records into the strictly
// ordered numeric feature vectors the classifier was trained on. Missing
// signals are synthesized, never fatal: reconciliation is a total function.
package reconcile

import (
	"log/slog"
	"time"

	"voltguard/internal/manifest"
)

// Record is one raw observation: producer-controlled keys to numeric values.
type Record map[string]float64

// Rule identifies which resolution step populated a feature. Exposed so
// operators can spot manifest drift: a feature that only ever resolves via
// RuleFallback is a schema mismatch upstream.
type Rule string

const (
	RuleTimeDerived        Rule = "time_derived"
	RuleCategoricalDefault Rule = "categorical_default"
	RuleDirect             Rule = "direct"
	RuleAlias              Rule = "alias"
	RuleDerivedMean        Rule = "derived_mean"
	RuleDerivedStd         Rule = "derived_std"
	RuleFallback           Rule = "fallback"
)

// Observer receives one event per manifest feature per reconciled record.
type Observer interface {
	Resolution(feature string, rule Rule)
}

// Engine reconciles raw records against a fixed manifest and alias table.
// All state is set at construction and read-only afterwards, so a single
// engine is safe for concurrent use.
type Engine struct {
	man     *manifest.Manifest
	aliases *manifest.AliasTable
	cfg     Config
	cal     map[string]Calibration
	obs     Observer
	log     *slog.Logger
}

// NewEngine builds an engine. obs may be nil.
func NewEngine(man *manifest.Manifest, aliases *manifest.AliasTable, cfg Config, obs Observer, log *slog.Logger) *Engine {
	cal := make(map[string]Calibration, len(cfg.Calibration))
	for _, c := range cfg.Calibration {
		cal[c.Signal] = c
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{man: man, aliases: aliases, cfg: cfg, cal: cal, obs: obs, log: log}
}

// Reconcile aligns one record using the current wall clock for the
// time-derived features.
func (e *Engine) Reconcile(rec Record) Vector {
	return e.ReconcileAt(rec, time.Now())
}

// ReconcileAt aligns one record at a fixed timestamp. The output has
// exactly the manifest's length and order. Reconciling the same record at
// the same instant always yields the same vector.
func (e *Engine) ReconcileAt(rec Record, at time.Time) Vector {
	n := e.man.Len()
	values := make([]float64, n)
	hit := make(map[string]bool, n)     // feature name -> resolved by a non-fallback rule
	meanByBase := make(map[string]float64)

	for i := 0; i < n; i++ {
		d := e.man.At(i)
		v, rule := e.resolve(rec, d, at, hit, meanByBase)
		values[i] = v
		if rule != RuleFallback {
			hit[d.Name] = true
		}
		if d.Role == manifest.RoleRollingMean && rule != RuleFallback {
			if _, seen := meanByBase[d.BaseSignal]; !seen {
				meanByBase[d.BaseSignal] = v
			}
		}
		if rule == RuleFallback {
			e.log.Warn("schema resolution gap", "feature", d.Name, "role", string(d.Role))
		}
		if e.obs != nil {
			e.obs.Resolution(d.Name, rule)
		}
	}

	return Vector{Names: e.man.Names(), Values: values}
}

func (e *Engine) resolve(rec Record, d manifest.Descriptor, at time.Time, hit map[string]bool, meanByBase map[string]float64) (float64, Rule) {
	switch d.Role {
	case manifest.RoleTimeDerived:
		// Always computed from the processing timestamp; producers are not
		// expected to supply calendar features.
		switch d.Name {
		case "month_of_year":
			return float64(at.Month()), RuleTimeDerived
		case "day_of_week":
			// Monday-indexed, matching the model's training data.
			return float64((int(at.Weekday()) + 6) % 7), RuleTimeDerived
		}
		return 0, RuleFallback

	case manifest.RoleCategorical:
		if v, rule, ok := e.lookup(rec, d.Name); ok {
			return v, rule
		}
		// Neutral default: unspecified/generic category.
		return 0, RuleCategoricalDefault
	}

	if v, rule, ok := e.lookup(rec, d.Name); ok {
		return e.calibrate(d, v), rule
	}

	switch d.Role {
	case manifest.RoleRollingMean:
		// A value observed now is assumed to also represent its recent
		// history: never understates a currently bad reading.
		if v, ok := e.baseValue(rec, d.BaseSignal, hit); ok {
			return e.calibrate(d, v), RuleDerivedMean
		}
	case manifest.RoleRollingStd:
		if mean, ok := meanByBase[d.BaseSignal]; ok {
			return mean * e.cfg.StdFraction, RuleDerivedStd
		}
		return e.cfg.NoiseFloor, RuleDerivedStd
	}

	return 0, RuleFallback
}

// lookup finds a feature value in the record: verbatim key first, then the
// canonical signal name, then its declared synonyms. No substring scanning.
func (e *Engine) lookup(rec Record, name string) (float64, Rule, bool) {
	if v, ok := rec[name]; ok {
		return v, RuleDirect, true
	}
	canonical := e.aliases.Canonical(name)
	if canonical != name {
		if v, ok := rec[canonical]; ok {
			return v, RuleAlias, true
		}
	}
	for _, syn := range e.aliases.Synonyms(canonical) {
		if syn == name {
			continue
		}
		if v, ok := rec[syn]; ok {
			return v, RuleAlias, true
		}
	}
	return 0, RuleFallback, false
}

// baseValue returns the base signal's value as resolved earlier in this
// pass, or straight from the record when the base is not itself a manifest
// feature.
func (e *Engine) baseValue(rec Record, base string, hit map[string]bool) (float64, bool) {
	if hit[base] {
		if v, ok := e.resolvedValue(rec, base); ok {
			return v, true
		}
	}
	if _, inManifest := e.man.Index(base); !inManifest {
		if v, _, ok := e.lookup(rec, base); ok {
			return v, true
		}
	}
	return 0, false
}

func (e *Engine) resolvedValue(rec Record, name string) (float64, bool) {
	// The base was resolved via direct or alias lookup; repeat it, it is
	// cheaper than threading a second map through the pass.
	v, _, ok := e.lookup(rec, name)
	return v, ok
}

func (e *Engine) calibrate(d manifest.Descriptor, v float64) float64 {
	signal := d.BaseSignal
	if signal == "" {
		signal = e.aliases.Canonical(d.Name)
	}
	c, ok := e.cal[signal]
	if !ok {
		return v
	}
	if abs(v) <= c.MaxRaw {
		return v * c.Multiplier
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
