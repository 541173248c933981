package reconcile

// Vector is one aligned feature vector: values in manifest order, paired
// with the manifest's feature names. Created per record, consumed by the
// classifier and the diagnostic engine, then discarded.
type Vector struct {
	Names  []string
	Values []float64
}

// Value returns the value for a feature name, if present.
func (v Vector) Value(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Len returns the vector length.
func (v Vector) Len() int { return len(v.Values) }
