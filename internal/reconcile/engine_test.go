package reconcile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"voltguard/internal/manifest"
)

// Wednesday 2024-07-10: month 7, Monday-indexed weekday 2.
var testClock = time.Date(2024, time.July, 10, 12, 0, 0, 0, time.UTC)

func mustManifest(t *testing.T, features []manifest.Descriptor) *manifest.Manifest {
	t.Helper()
	m, err := manifest.New(features)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func mustAliases(t *testing.T, entries []manifest.AliasEntry) *manifest.AliasTable {
	t.Helper()
	tab, err := manifest.NewAliasTable(entries)
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func emptyAliases(t *testing.T) *manifest.AliasTable {
	return mustAliases(t, nil)
}

func TestReconcile_DirectMatch(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{{Name: "avg_peak_temp", Role: manifest.RoleRawSignal}})
	e := NewEngine(m, emptyAliases(t), DefaultConfig(), nil, nil)

	got := e.ReconcileAt(Record{"avg_peak_temp": 35.0}, testClock)
	if diff := cmp.Diff([]float64{35.0}, got.Values); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_AliasMatch(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{{Name: "avg_peak_temp", Role: manifest.RoleRawSignal}})
	tab := mustAliases(t, []manifest.AliasEntry{{Canonical: "avg_peak_temp", Synonyms: []string{"temperature", "temp"}}})
	e := NewEngine(m, tab, DefaultConfig(), nil, nil)

	got := e.ReconcileAt(Record{"temperature": 90.0}, testClock)
	if diff := cmp.Diff([]float64{90.0}, got.Values); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_AliasSymmetry(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{{Name: "avg_peak_temp", Role: manifest.RoleRawSignal}})
	tab := mustAliases(t, []manifest.AliasEntry{{Canonical: "avg_peak_temp", Synonyms: []string{"temperature", "temp"}}})
	e := NewEngine(m, tab, DefaultConfig(), nil, nil)

	for _, key := range []string{"avg_peak_temp", "temperature", "temp"} {
		got := e.ReconcileAt(Record{key: 72.5}, testClock)
		if got.Values[0] != 72.5 {
			t.Errorf("key %q: got %v, want 72.5", key, got.Values[0])
		}
	}
}

func TestReconcile_TimeDerived(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{
		{Name: "month_of_year", Role: manifest.RoleTimeDerived},
		{Name: "day_of_week", Role: manifest.RoleTimeDerived},
	})
	e := NewEngine(m, emptyAliases(t), DefaultConfig(), nil, nil)

	// Record values for calendar features are ignored on purpose.
	got := e.ReconcileAt(Record{"month_of_year": 99, "day_of_week": 99}, testClock)
	if diff := cmp.Diff([]float64{7, 2}, got.Values); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_CategoricalDefault(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{{Name: "charger_model_type", Role: manifest.RoleCategorical}})
	e := NewEngine(m, emptyAliases(t), DefaultConfig(), nil, nil)

	if got := e.ReconcileAt(Record{}, testClock); got.Values[0] != 0 {
		t.Errorf("missing categorical = %v, want 0", got.Values[0])
	}
	if got := e.ReconcileAt(Record{"charger_model_type": 3}, testClock); got.Values[0] != 3 {
		t.Errorf("supplied categorical = %v, want 3", got.Values[0])
	}
}

func TestReconcile_RollingMeanFromBase(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{
		{Name: "avg_peak_temp", Role: manifest.RoleRawSignal},
		{Name: "avg_peak_temp_roll_mean_14d", Role: manifest.RoleRollingMean, Window: "14d", BaseSignal: "avg_peak_temp"},
	})
	e := NewEngine(m, emptyAliases(t), DefaultConfig(), nil, nil)

	got := e.ReconcileAt(Record{"avg_peak_temp": 88.0}, testClock)
	if diff := cmp.Diff([]float64{88.0, 88.0}, got.Values); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}

	// A supplied history wins over synthesis.
	got = e.ReconcileAt(Record{"avg_peak_temp": 88.0, "avg_peak_temp_roll_mean_14d": 40.0}, testClock)
	if diff := cmp.Diff([]float64{88.0, 40.0}, got.Values); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_RollingStdSynthesis(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{
		{Name: "voltage_instability", Role: manifest.RoleRawSignal},
		{Name: "voltage_instability_roll_std_14d", Role: manifest.RoleRollingStd, Window: "14d", BaseSignal: "voltage_instability"},
	})
	e := NewEngine(m, emptyAliases(t), DefaultConfig(), nil, nil)

	// No sibling mean in the manifest: noise floor applies.
	got := e.ReconcileAt(Record{"voltage_instability": 1.0}, testClock)
	if diff := cmp.Diff([]float64{1.0, 0.05}, got.Values); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_RollingStdFromSiblingMean(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{
		{Name: "avg_peak_temp", Role: manifest.RoleRawSignal},
		{Name: "avg_peak_temp_roll_mean_14d", Role: manifest.RoleRollingMean, Window: "14d", BaseSignal: "avg_peak_temp"},
		{Name: "avg_peak_temp_roll_std_14d", Role: manifest.RoleRollingStd, Window: "14d", BaseSignal: "avg_peak_temp"},
	})
	e := NewEngine(m, emptyAliases(t), DefaultConfig(), nil, nil)

	got := e.ReconcileAt(Record{"avg_peak_temp": 80.0}, testClock)
	if diff := cmp.Diff([]float64{80.0, 80.0, 4.0}, got.Values); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_Fallback(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{{Name: "mystery_signal", Role: manifest.RoleRawSignal}})
	e := NewEngine(m, emptyAliases(t), DefaultConfig(), nil, nil)

	if got := e.ReconcileAt(Record{"something_else": 12}, testClock); got.Values[0] != 0 {
		t.Errorf("unresolved feature = %v, want 0", got.Values[0])
	}
}

func TestReconcile_Completeness(t *testing.T) {
	m := manifest.Default()
	e := NewEngine(m, manifest.DefaultAliases(), DefaultConfig(), nil, nil)

	records := []Record{
		{},
		{"avg_peak_temp": 35},
		{"temperature": 90, "voltage": 0.8, "error": 12, "sessions": 4, "ambient": 20},
	}
	for i, rec := range records {
		got := e.ReconcileAt(rec, testClock)
		if got.Len() != m.Len() {
			t.Fatalf("record %d: vector length %d, want %d", i, got.Len(), m.Len())
		}
		if diff := cmp.Diff(m.Names(), got.Names); diff != "" {
			t.Fatalf("record %d: name order mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestReconcile_Idempotence(t *testing.T) {
	m := manifest.Default()
	e := NewEngine(m, manifest.DefaultAliases(), DefaultConfig(), nil, nil)

	rec := Record{"temperature": 90, "error_rate": 12, "sessions_today": 4}
	a := e.ReconcileAt(rec, testClock)
	b := e.ReconcileAt(rec, testClock)
	if diff := cmp.Diff(a.Values, b.Values); diff != "" {
		t.Errorf("same record, same instant produced different vectors:\n%s", diff)
	}
}

func TestReconcile_CalibrationMultiplier(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{{Name: "error_rate", Role: manifest.RoleRawSignal}})
	cfg := DefaultConfig() // error_rate x100 when |raw| <= 1
	e := NewEngine(m, emptyAliases(t), cfg, nil, nil)

	if got := e.ReconcileAt(Record{"error_rate": 0.25}, testClock); got.Values[0] != 25.0 {
		t.Errorf("ratio-scaled input = %v, want 25", got.Values[0])
	}
	if got := e.ReconcileAt(Record{"error_rate": 12.0}, testClock); got.Values[0] != 12.0 {
		t.Errorf("magnitude input = %v, want 12 unchanged", got.Values[0])
	}
}

type captureObserver struct {
	rules map[string]Rule
}

func (c *captureObserver) Resolution(feature string, rule Rule) {
	if c.rules == nil {
		c.rules = make(map[string]Rule)
	}
	c.rules[feature] = rule
}

func TestReconcile_ObserverSeesEveryFeature(t *testing.T) {
	m := mustManifest(t, []manifest.Descriptor{
		{Name: "avg_peak_temp", Role: manifest.RoleRawSignal},
		{Name: "month_of_year", Role: manifest.RoleTimeDerived},
		{Name: "ghost", Role: manifest.RoleRawSignal},
	})
	obs := &captureObserver{}
	e := NewEngine(m, emptyAliases(t), DefaultConfig(), obs, nil)

	e.ReconcileAt(Record{"avg_peak_temp": 40}, testClock)

	want := map[string]Rule{
		"avg_peak_temp": RuleDirect,
		"month_of_year": RuleTimeDerived,
		"ghost":         RuleFallback,
	}
	if diff := cmp.Diff(want, obs.rules); diff != "" {
		t.Errorf("observed rules mismatch (-want +got):\n%s", diff)
	}
}

func TestCoerceRecord(t *testing.T) {
	rec := CoerceRecord(map[string]any{
		"avg_peak_temp": 35.5,
		"sessions":      float64(12),
		"error_rate":    "0.5",
		"online":        true,
		"station_name":  "A-12 North",
		"notes":         nil,
	})
	want := Record{
		"avg_peak_temp": 35.5,
		"sessions":      12,
		"error_rate":    0.5,
		"online":        1,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("coerced record mismatch (-want +got):\n%s", diff)
	}
}
