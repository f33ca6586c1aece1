// Package varinfo resolves variable metadata for NetCDF-4 style granules:
// qualifying coordinate references to absolute paths, applying the rule
// engine's metadata overlays, and partitioning variables into science and
// metadata sets ahead of reprojection.
package varinfo

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nasa/harmony-swath-projector/internal/rules"
)

// ErrMissingCoordinates is returned when none of a variable's coordinate
// references name a recognisable latitude or longitude variable.
var ErrMissingCoordinates = errors.New("no matching coordinate variable")

// Variable is a single variable from a source granule: its full group
// qualified path and its metadata attributes.
type Variable struct {
	Path       string
	Attributes map[string]string
}

// ApplyOverrides merges a rule engine overlay onto the variable's native
// attributes. Overlay values take precedence over anything already present
// from the source file.
func (v *Variable) ApplyOverrides(overrides map[string]string) {
	if len(overrides) == 0 {
		return
	}
	if v.Attributes == nil {
		v.Attributes = make(map[string]string, len(overrides))
	}
	for name, value := range overrides {
		v.Attributes[name] = value
	}
}

// CoordinateReferences returns the variable's coordinate references as
// absolute paths, qualified against the variable's group. References are
// split on commas and whitespace, matching CF convention usage.
func (v *Variable) CoordinateReferences(dataset *Dataset) []string {
	raw := v.Attributes["coordinates"]
	if raw == "" {
		return nil
	}

	var references []string
	for _, reference := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		references = append(references, QualifyReference(reference, v.Path, dataset))
	}

	return CoordinatesKey(references)
}

// Dataset is an in-memory listing of the variables in a granule, keyed by
// absolute path.
type Dataset struct {
	variables map[string]*Variable
}

// NewDataset builds a Dataset from the given variables.
func NewDataset(variables ...*Variable) *Dataset {
	dataset := &Dataset{variables: make(map[string]*Variable, len(variables))}
	for _, variable := range variables {
		dataset.variables[variable.Path] = variable
	}
	return dataset
}

// HasVariable reports whether a variable exists at the given absolute path.
func (d *Dataset) HasVariable(path string) bool {
	_, ok := d.variables[path]
	return ok
}

// Variable returns the variable at the given absolute path, or nil.
func (d *Dataset) Variable(path string) *Variable {
	return d.variables[path]
}

// Paths returns all variable paths in the dataset, sorted.
func (d *Dataset) Paths() []string {
	paths := make([]string, 0, len(d.variables))
	for path := range d.variables {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// GroupPath returns the group containing a variable, which is the variable
// path with its final component removed. Variables in the root group have an
// empty group path.
func GroupPath(variablePath string) string {
	index := strings.LastIndex(variablePath, "/")
	if index <= 0 {
		return ""
	}
	return variablePath[:index]
}

// QualifyReference turns a reference to another variable, as stored in the
// metadata of the referring variable, into an absolute path. For a variable
// at /group_one/var_one:
//
//   - "/base_var" stays "/base_var"
//   - "../base_var" becomes "/base_var"
//   - "./group_var" becomes "/group_one/group_var"
//   - "group_var" becomes "/group_one/group_var" when the group contains it,
//     otherwise "/group_var" (assumed to be in the root group)
func QualifyReference(raw, referencePath string, dataset *Dataset) string {
	groupPath := GroupPath(referencePath)

	switch {
	case strings.HasPrefix(raw, "../"):
		return ConstructAbsolutePath(raw, groupPath)
	case strings.HasPrefix(raw, "/"):
		return raw
	case strings.HasPrefix(raw, "./"):
		return groupPath + raw[1:]
	case dataset != nil && dataset.HasVariable(groupPath+"/"+raw):
		return ConstructAbsolutePath(raw, groupPath)
	default:
		return ConstructAbsolutePath(raw, "")
	}
}

// ConstructAbsolutePath combines a possibly relative reference with the
// group path of the referring variable, resolving any "../" prefixes.
func ConstructAbsolutePath(reference, groupPath string) string {
	const relativePrefix = "../"

	pieces := strings.Split(groupPath, "/")
	for strings.HasPrefix(reference, relativePrefix) {
		reference = reference[len(relativePrefix):]
		if len(pieces) > 0 {
			pieces = pieces[:len(pieces)-1]
		}
	}

	absolute := strings.Join(append(pieces, reference), "/")
	return "/" + strings.TrimLeft(absolute, "/")
}

// CoordinatesKey produces a sorted, deduplicated coordinate tuple. Science
// variables sharing a key share a swath and can reuse resampling results.
func CoordinatesKey(references []string) []string {
	seen := make(map[string]struct{}, len(references))
	key := make([]string, 0, len(references))
	for _, reference := range references {
		if _, ok := seen[reference]; ok {
			continue
		}
		seen[reference] = struct{}{}
		key = append(key, reference)
	}
	sort.Strings(key)
	return key
}

// CoordinateBySubstring finds the coordinate reference whose base name
// contains the given substring ("lat" or "lon") and exists in the dataset.
// Only the base name is searched, as group paths may contain either string
// as part of other words.
func CoordinateBySubstring(dataset *Dataset, references []string, substring string) (*Variable, error) {
	for _, reference := range references {
		base := reference[strings.LastIndex(reference, "/")+1:]
		if strings.Contains(base, substring) && dataset.HasVariable(reference) {
			return dataset.Variable(reference), nil
		}
	}
	return nil, ErrMissingCoordinates
}

// VariableFilePath builds a unique single-band file name for a variable,
// even when variables share a base name across groups: leading slashes are
// stripped and interior slashes become underscores.
func VariableFilePath(dir, variableName, extension string) string {
	converted := strings.ReplaceAll(strings.TrimLeft(variableName, "/"), "/", "_")
	return filepath.Join(dir, converted+extension)
}

// Classification partitions a granule's variables after rule evaluation.
type Classification struct {
	Science  []string
	Metadata []string
	Excluded []string
}

// Classify applies the rule document to every variable in the dataset.
// Overrides are merged onto each variable's attributes first, then excluded
// variables are dropped from the science set entirely. Remaining variables
// with coordinate references are science variables; the rest are metadata.
func Classify(dataset *Dataset, doc *rules.Document, mission, shortName string) Classification {
	var classification Classification

	for _, path := range dataset.Paths() {
		variable := dataset.Variable(path)
		variable.ApplyOverrides(doc.ResolveOverrides(mission, shortName, path))

		switch {
		case doc.IsExcluded(mission, shortName, path):
			classification.Excluded = append(classification.Excluded, path)
		case variable.Attributes["coordinates"] != "":
			classification.Science = append(classification.Science, path)
		default:
			classification.Metadata = append(classification.Metadata, path)
		}
	}

	return classification
}
