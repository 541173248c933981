package diagnose

// Limit is a fixed advisory ceiling for one canonical base signal, used
// when the classifier's preprocessing cannot be introspected.
type Limit struct {
	Signal string  `yaml:"signal" json:"signal"`
	Max    float64 `yaml:"max" json:"max"`
}

// CategoryRule maps a keyword found in the leading root-cause driver to a
// coarse failure category.
type CategoryRule struct {
	Keyword  string `yaml:"keyword" json:"keyword"`
	Category string `yaml:"category" json:"category"`
}

// Config holds the named diagnostic constants. Immutable after
// construction.
type Config struct {
	// TopDrivers caps how many contributors appear in one explanation.
	TopDrivers int `yaml:"top_drivers" json:"top_drivers"`
	// FlaggedAcceptSigma is the acceptance threshold when the classifier
	// already flagged the record: low, so a reason is always surfaced.
	FlaggedAcceptSigma float64 `yaml:"flagged_accept_sigma" json:"flagged_accept_sigma"`
	// QuietAcceptSigma is the stricter threshold for unflagged records,
	// suppressing noisy explanations for healthy hardware.
	QuietAcceptSigma float64 `yaml:"quiet_accept_sigma" json:"quiet_accept_sigma"`
	// HighSigma and CriticalSigma are the severity band cutoffs.
	HighSigma     float64 `yaml:"high_sigma" json:"high_sigma"`
	CriticalSigma float64 `yaml:"critical_sigma" json:"critical_sigma"`
	// HighRatio and CriticalRatio are the severity band cutoffs for the
	// ratio-to-limit fallback method.
	HighRatio     float64 `yaml:"high_ratio" json:"high_ratio"`
	CriticalRatio float64 `yaml:"critical_ratio" json:"critical_ratio"`
	// AdvisoryLimits drive the fallback method on base signals.
	AdvisoryLimits []Limit `yaml:"advisory_limits" json:"advisory_limits"`
	// Categories maps driver keywords to failure categories, checked in
	// order; the first match wins.
	Categories []CategoryRule `yaml:"categories" json:"categories"`
	// DefaultCategory applies when no keyword matches a high-risk driver.
	DefaultCategory string `yaml:"default_category" json:"default_category"`
}

// DefaultConfig returns the calibrated diagnostic defaults.
func DefaultConfig() Config {
	return Config{
		TopDrivers:         3,
		FlaggedAcceptSigma: 0.5,
		QuietAcceptSigma:   2.0,
		HighSigma:          3.0,
		CriticalSigma:      5.0,
		HighRatio:          1.5,
		CriticalRatio:      2.0,
		AdvisoryLimits: []Limit{
			{Signal: "avg_peak_temp", Max: 60},
			{Signal: "voltage_instability", Max: 0.15},
			{Signal: "error_rate", Max: 10},
			{Signal: "sessions_today", Max: 30},
		},
		Categories: []CategoryRule{
			{Keyword: "temp", Category: "OVERHEATING"},
			{Keyword: "voltage", Category: "POWER QUALITY"},
			{Keyword: "error", Category: "SOFTWARE ERROR"},
		},
		DefaultCategory: "PREDICTIVE ALERT",
	}
}
