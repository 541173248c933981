// Package manifest holds the feature contract between incoming telemetry
// and the trained classifier: the ordered feature manifest and the alias
// table that maps producer key names onto canonical signals. Both are
// loaded once at startup and immutable afterwards.
package manifest

import (
	"fmt"
)

// Role classifies how a manifest feature is populated during reconciliation.
type Role string

const (
	RoleRawSignal   Role = "raw_signal"
	RoleRollingMean Role = "rolling_mean"
	RoleRollingStd  Role = "rolling_std"
	RoleTimeDerived Role = "time_derived"
	RoleCategorical Role = "categorical"
)

// Descriptor is one entry in the feature manifest. Window and BaseSignal
// are only meaningful for the rolling_* roles.
type Descriptor struct {
	Name       string `yaml:"name" json:"name"`
	Role       Role   `yaml:"role" json:"role"`
	Window     string `yaml:"window,omitempty" json:"window,omitempty"`
	BaseSignal string `yaml:"base_signal,omitempty" json:"base_signal,omitempty"`
}

// Manifest is the ordered, positional feature contract with the classifier.
// The output vector of reconciliation has exactly this length and order.
type Manifest struct {
	features []Descriptor
	index    map[string]int
}

// New validates the descriptors and builds a manifest preserving their order.
func New(features []Descriptor) (*Manifest, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("manifest must declare at least one feature")
	}
	index := make(map[string]int, len(features))
	for i, d := range features {
		if d.Name == "" {
			return nil, fmt.Errorf("manifest entry %d has empty name", i)
		}
		if _, dup := index[d.Name]; dup {
			return nil, fmt.Errorf("duplicate manifest feature %q", d.Name)
		}
		switch d.Role {
		case RoleRawSignal, RoleTimeDerived, RoleCategorical:
			if d.BaseSignal != "" {
				return nil, fmt.Errorf("feature %q: base_signal only valid for rolling roles", d.Name)
			}
		case RoleRollingMean, RoleRollingStd:
			if d.BaseSignal == "" {
				return nil, fmt.Errorf("feature %q: rolling role requires base_signal", d.Name)
			}
		default:
			return nil, fmt.Errorf("feature %q: unknown role %q", d.Name, d.Role)
		}
		index[d.Name] = i
	}
	return &Manifest{features: append([]Descriptor(nil), features...), index: index}, nil
}

// Len returns the number of features in the manifest.
func (m *Manifest) Len() int { return len(m.features) }

// Features returns the descriptors in manifest order. The slice is a copy.
func (m *Manifest) Features() []Descriptor {
	return append([]Descriptor(nil), m.features...)
}

// At returns the descriptor at position i.
func (m *Manifest) At(i int) Descriptor { return m.features[i] }

// Names returns the feature names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.features))
	for i, d := range m.features {
		names[i] = d.Name
	}
	return names
}

// Index returns the position of a feature name in the manifest.
func (m *Manifest) Index(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}
