// Package diagnose turns an aligned vector and the classifier's verdict
// hint into a ranked, human-readable root-cause explanation. It never
// fails: without normalization parameters it degrades to fixed advisory
// limits, and a flagged record is never left unexplained.
package diagnose

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"voltguard/internal/classifier"
	"voltguard/internal/reconcile"
)

// Sentinel explanations.
const (
	SentinelNormal  = "Normal Range"
	SentinelPattern = "Anomaly Detected (Pattern)"
)

// CategoryNone is the failure category of a low-risk verdict.
const CategoryNone = "-"

// Engine ranks explanation drivers. Immutable after construction.
type Engine struct {
	cfg Config
	log *slog.Logger
}

// NewEngine builds a diagnostic engine.
func NewEngine(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log}
}

type driver struct {
	name  string
	score float64
}

// Explain builds the root-cause string for one record. params may be nil
// when the classifier does not expose its preprocessing; highRisk is the
// upstream hint that the record was already flagged.
func (e *Engine) Explain(vec reconcile.Vector, params *classifier.NormParams, highRisk bool) string {
	if params == nil || len(params.Means) != vec.Len() || len(params.Scales) != vec.Len() {
		if params != nil {
			e.log.Warn("normalization params misaligned, using advisory limits",
				"params", len(params.Means), "vector", vec.Len())
		}
		return e.explainByLimits(vec, highRisk)
	}
	return e.explainByDeviation(vec, params, highRisk)
}

// explainByDeviation is the primary method: standardized deviation ranking.
func (e *Engine) explainByDeviation(vec reconcile.Vector, params *classifier.NormParams, highRisk bool) string {
	var drivers []driver
	for i, raw := range vec.Values {
		scale := params.Scales[i]
		if scale == 0 {
			// Zero observed variance contributes zero deviation rather
			// than an undefined value.
			scale = 1
		}
		z := (raw - params.Means[i]) / scale
		// Only excess readings explain a failure; an unusually low
		// physical stress reading is never a cause in this domain.
		if z > 0 {
			drivers = append(drivers, driver{name: vec.Names[i], score: z})
		}
	}
	sort.SliceStable(drivers, func(i, j int) bool { return drivers[i].score > drivers[j].score })
	if len(drivers) > e.cfg.TopDrivers {
		drivers = drivers[:e.cfg.TopDrivers]
	}

	accept := e.cfg.QuietAcceptSigma
	if highRisk {
		accept = e.cfg.FlaggedAcceptSigma
	}
	if len(drivers) == 0 || drivers[0].score < accept {
		if highRisk {
			// A flagged record is never reported as unexplained normal.
			return SentinelPattern
		}
		return SentinelNormal
	}

	parts := make([]string, 0, len(drivers))
	for _, d := range drivers {
		if d.score < accept {
			break
		}
		severity := "Elevated"
		if d.score > e.cfg.CriticalSigma {
			severity = "CRITICAL"
		} else if d.score > e.cfg.HighSigma {
			severity = "High"
		}
		parts = append(parts, fmt.Sprintf("%s: %s (%.1fσ)", readableName(d.name), severity, d.score))
	}
	return strings.Join(parts, " | ")
}

// explainByLimits is the fallback method: fixed advisory limits on the
// base signals, scored as the ratio of reading to limit.
func (e *Engine) explainByLimits(vec reconcile.Vector, highRisk bool) string {
	var drivers []driver
	for _, lim := range e.cfg.AdvisoryLimits {
		if lim.Max <= 0 {
			continue
		}
		v, ok := vec.Value(lim.Signal)
		if !ok || v <= lim.Max {
			continue
		}
		drivers = append(drivers, driver{name: lim.Signal, score: v / lim.Max})
	}
	sort.SliceStable(drivers, func(i, j int) bool { return drivers[i].score > drivers[j].score })
	if len(drivers) > e.cfg.TopDrivers {
		drivers = drivers[:e.cfg.TopDrivers]
	}

	if len(drivers) == 0 {
		if highRisk {
			return SentinelPattern
		}
		return SentinelNormal
	}

	parts := make([]string, 0, len(drivers))
	for _, d := range drivers {
		severity := "Elevated"
		if d.score > e.cfg.CriticalRatio {
			severity = "CRITICAL"
		} else if d.score > e.cfg.HighRatio {
			severity = "High"
		}
		parts = append(parts, fmt.Sprintf("%s: %s (%.1f×)", readableName(d.name), severity, d.score))
	}
	return strings.Join(parts, " | ")
}

// Categorize maps an explanation's leading driver to a coarse failure
// category. Low-risk verdicts carry no category.
func (e *Engine) Categorize(rootCause string, highRisk bool) string {
	if !highRisk {
		return CategoryNone
	}
	lead := rootCause
	if i := strings.Index(lead, " | "); i >= 0 {
		lead = lead[:i]
	}
	lead = strings.ToLower(lead)
	for _, rule := range e.cfg.Categories {
		if strings.Contains(lead, rule.Keyword) {
			return rule.Category
		}
	}
	return e.cfg.DefaultCategory
}

var suffixLabels = []struct{ suffix, label string }{
	{"_roll_mean_14d", " (14d Avg)"},
	{"_roll_mean_7d", " (7d Avg)"},
	{"_roll_std_14d", " (Variance)"},
	{"_roll_std_7d", " (Variance)"},
}

// readableName renders an internal feature name for operators: rolling
// window suffixes become annotations and the rest is title-cased.
func readableName(feature string) string {
	annotation := ""
	for _, s := range suffixLabels {
		if strings.HasSuffix(feature, s.suffix) {
			feature = strings.TrimSuffix(feature, s.suffix)
			annotation = s.label
			break
		}
	}
	words := strings.Split(feature, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ") + annotation
}
