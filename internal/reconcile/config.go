package reconcile

// Calibration rescales one canonical signal when a producer reports it on
// a different unit scale than the model was trained on. The multiplier is
// applied only when |raw| <= MaxRaw, the magnitude bound that separates
// "looks like a ratio" from "already a magnitude".
type Calibration struct {
	Signal     string  `yaml:"signal" json:"signal"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
	MaxRaw     float64 `yaml:"max_raw" json:"max_raw"`
}

// Config holds the named constants the engine synthesizes with. It is
// immutable after construction; there are no package-level tables.
type Config struct {
	// StdFraction is the synthetic rolling-std as a fraction of the
	// sibling rolling-mean when the producer supplied no history.
	StdFraction float64 `yaml:"std_fraction" json:"std_fraction"`
	// NoiseFloor is the rolling-std fallback when no sibling mean is
	// available either; it stands in for baseline sensor noise.
	NoiseFloor float64 `yaml:"noise_floor" json:"noise_floor"`
	// Calibration lists per-signal unit rescaling rules.
	Calibration []Calibration `yaml:"calibration" json:"calibration"`
}

// DefaultConfig returns the calibrated defaults for the shipped model.
func DefaultConfig() Config {
	return Config{
		StdFraction: 0.05,
		NoiseFloor:  0.05,
		Calibration: []Calibration{
			// Some site controllers report error_rate as a 0-1 fraction;
			// the model was trained on percentages.
			{Signal: "error_rate", Multiplier: 100, MaxRaw: 1.0},
		},
	}
}
