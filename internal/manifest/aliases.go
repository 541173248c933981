package manifest

import "fmt"

// AliasEntry pairs a canonical signal name with the ordered synonym names
// producers may use instead.
type AliasEntry struct {
	Canonical string   `yaml:"canonical" json:"canonical"`
	Synonyms  []string `yaml:"synonyms" json:"synonyms"`
}

// AliasTable resolves producer key names onto canonical signals. Lookups
// are many-to-one: many synonyms map to a single canonical, and no synonym
// may appear under two canonicals.
type AliasTable struct {
	entries     []AliasEntry
	byName      map[string]string   // canonical or synonym -> canonical
	byCanonical map[string][]string // canonical -> synonyms in declared order
}

// NewAliasTable validates and indexes the given entries.
func NewAliasTable(entries []AliasEntry) (*AliasTable, error) {
	t := &AliasTable{
		entries:     append([]AliasEntry(nil), entries...),
		byName:      make(map[string]string),
		byCanonical: make(map[string][]string),
	}
	for _, e := range entries {
		if e.Canonical == "" {
			return nil, fmt.Errorf("alias entry with empty canonical name")
		}
		if prev, ok := t.byName[e.Canonical]; ok && prev != e.Canonical {
			return nil, fmt.Errorf("canonical %q already used as a synonym of %q", e.Canonical, prev)
		}
		if _, dup := t.byCanonical[e.Canonical]; dup {
			return nil, fmt.Errorf("duplicate alias entry for canonical %q", e.Canonical)
		}
		t.byName[e.Canonical] = e.Canonical
		t.byCanonical[e.Canonical] = append([]string(nil), e.Synonyms...)
		for _, s := range e.Synonyms {
			if s == "" {
				return nil, fmt.Errorf("canonical %q has an empty synonym", e.Canonical)
			}
			if prev, ok := t.byName[s]; ok && prev != e.Canonical {
				return nil, fmt.Errorf("synonym %q maps to both %q and %q", s, prev, e.Canonical)
			}
			t.byName[s] = e.Canonical
		}
	}
	return t, nil
}

// Canonical resolves any known name (canonical or synonym) to its canonical
// signal. Unknown names resolve to themselves.
func (t *AliasTable) Canonical(name string) string {
	if c, ok := t.byName[name]; ok {
		return c
	}
	return name
}

// Synonyms returns the declared synonyms of a canonical signal, in order.
func (t *AliasTable) Synonyms(canonical string) []string {
	return t.byCanonical[canonical]
}

// Entries returns the table content in declared order. The slice is a copy.
func (t *AliasTable) Entries() []AliasEntry {
	return append([]AliasEntry(nil), t.entries...)
}
