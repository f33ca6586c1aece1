package rules

// Decision is the resolved outcome for a single variable path.
type Decision struct {
	Excluded  bool              `json:"excluded"`
	Overrides map[string]string `json:"overrides"`
}

// ResolveShortName returns the collection short name by trying each
// configured CollectionShortNamePath candidate, in order, against the
// collection metadata attributes. The first non-empty value wins.
//
// A missing short name is reported with ErrMissingShortName but is not
// fatal: callers may continue with an empty short name, and any rule
// requiring a specific short name simply never matches.
func (d *Document) ResolveShortName(attributes map[string]string) (string, error) {
	for _, path := range d.CollectionShortNamePath {
		if value := attributes[path]; value != "" {
			return value, nil
		}
	}
	return "", ErrMissingShortName
}

// ResolveMission maps a collection short name to its mission by testing each
// mission pattern in document order. The first matching pattern determines
// the mission, even if a later pattern would also match. An empty string
// means the mission is undefined for this collection.
func (d *Document) ResolveMission(shortName string) string {
	for _, mp := range d.MissionPatterns {
		if matchPattern(mp.re, shortName) {
			return mp.Mission
		}
	}
	return ""
}

// IsExcluded reports whether any exclusion rule covers the variable.
// Exclusion is a logical OR over the rules, so evaluation stops at the first
// match. Excluded variables are dropped from the science variable set
// entirely: they are neither reprojected nor written to the output.
func (d *Document) IsExcluded(mission, shortName, variablePath string) bool {
	for i := range d.Exclusions {
		if d.Exclusions[i].Applicability.Matches(mission, shortName, variablePath) {
			return true
		}
	}
	return false
}

// ResolveOverrides accumulates the metadata overlay for a variable by
// applying every matching override rule in document order. When two rules
// set the same attribute, the later rule in the document wins. Variables
// matched by no rule receive an empty map, leaving their native metadata
// untouched.
//
// The result is a fresh map on every call; evaluation has no hidden state.
func (d *Document) ResolveOverrides(mission, shortName, variablePath string) map[string]string {
	overrides := make(map[string]string)
	for i := range d.Overrides {
		if !d.Overrides[i].Applicability.Matches(mission, shortName, variablePath) {
			continue
		}
		for _, attr := range d.Overrides[i].Attributes {
			overrides[attr.Name] = attr.Value
		}
	}
	return overrides
}

// Evaluate combines the exclusion and override decisions for one variable.
func (d *Document) Evaluate(mission, shortName, variablePath string) Decision {
	return Decision{
		Excluded:  d.IsExcluded(mission, shortName, variablePath),
		Overrides: d.ResolveOverrides(mission, shortName, variablePath),
	}
}
