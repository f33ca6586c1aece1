// Package rules implements the CF metadata override and exclusion rule
// engine for the Swath Projector. A rule document maps satellite missions
// and collection short names to per-variable decisions: whether a variable
// is excluded from science processing, and which metadata attributes (such
// as corrected coordinate references) should be overlaid on it.
//
// Documents are loaded once, validated eagerly, and are immutable
// afterwards, so a single Document may be shared by concurrent readers.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dlclark/regexp2"
)

// CurrentVersion is the newest rule document schema version this engine
// understands.
const CurrentVersion = 1

// Document is a parsed, compiled rule document. All regular expressions are
// compiled during Parse; a Document that loads without error will never fail
// during evaluation.
type Document struct {
	Identification          string
	Version                 int
	CollectionShortNamePath []string
	MissionPatterns         []MissionPattern
	Exclusions              []ExclusionRule
	Overrides               []OverrideRule
}

// MissionPattern associates a short-name pattern with a mission name.
// Patterns are evaluated in document order; the first match wins.
type MissionPattern struct {
	Pattern string
	Mission string

	re *regexp2.Regexp
}

// ExclusionRule marks matched variables as excluded from the science
// variable set. There is no payload beyond the match predicate.
type ExclusionRule struct {
	Applicability Applicability
}

// OverrideRule applies its attributes to the metadata of matched variables.
type OverrideRule struct {
	Applicability Applicability
	Attributes    []Attribute
}

// Attribute is a single metadata name/value pair.
type Attribute struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// rawDocument mirrors the on-disk JSON layout. Mission is kept raw because
// encoding/json maps do not preserve key order, and mission pattern
// precedence is defined by document order.
type rawDocument struct {
	Identification           string          `json:"Identification"`
	Version                  int             `json:"Version"`
	CollectionShortNamePath  []string        `json:"CollectionShortNamePath"`
	Mission                  json.RawMessage `json:"Mission"`
	ExcludedScienceVariables []rawRule       `json:"ExcludedScienceVariables"`
	MetadataOverrides        []rawRule       `json:"MetadataOverrides"`
}

type rawRule struct {
	Description   string           `json:"_Description"`
	Applicability rawApplicability `json:"Applicability"`
	Attributes    []Attribute      `json:"Attributes"`
}

type rawApplicability struct {
	Mission         string      `json:"Mission"`
	ShortNamePath   string      `json:"ShortNamePath"`
	VariablePattern patternList `json:"VariablePattern"`
}

// patternList accepts either a single JSON string or a list of strings.
type patternList []string

func (p *patternList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = patternList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("VariablePattern must be a string or list of strings: %w", err)
	}
	*p = patternList(many)
	return nil
}

// Load reads, validates, and compiles a rule document from a JSON file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule document %q: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rule document %q: %w", path, err)
	}

	return doc, nil
}

// Parse validates raw JSON against the embedded schema, decodes it, and
// compiles every pattern it contains. Any malformed regular expression is a
// fatal ErrConfiguration, reported here rather than lazily per variable.
func Parse(data []byte) (*Document, error) {
	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if raw.Version < 1 || raw.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (supported: 1-%d)",
			ErrConfiguration, raw.Version, CurrentVersion)
	}

	missions, err := parseMissionPatterns(raw.Mission)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Identification:          raw.Identification,
		Version:                 raw.Version,
		CollectionShortNamePath: raw.CollectionShortNamePath,
		MissionPatterns:         missions,
	}

	for i, rule := range raw.ExcludedScienceVariables {
		applicability, err := compileApplicability(rule.Applicability)
		if err != nil {
			return nil, fmt.Errorf("%w: ExcludedScienceVariables[%d]: %v", ErrConfiguration, i, err)
		}
		doc.Exclusions = append(doc.Exclusions, ExclusionRule{Applicability: applicability})
	}

	for i, rule := range raw.MetadataOverrides {
		applicability, err := compileApplicability(rule.Applicability)
		if err != nil {
			return nil, fmt.Errorf("%w: MetadataOverrides[%d]: %v", ErrConfiguration, i, err)
		}
		if len(rule.Attributes) == 0 {
			return nil, fmt.Errorf("%w: MetadataOverrides[%d]: at least one attribute is required",
				ErrConfiguration, i)
		}
		doc.Overrides = append(doc.Overrides, OverrideRule{
			Applicability: applicability,
			Attributes:    rule.Attributes,
		})
	}

	return doc, nil
}

// parseMissionPatterns decodes the Mission object with a token-level decoder
// so that insertion order survives. ResolveMission depends on this order for
// its first-match-wins behaviour.
func parseMissionPatterns(raw json.RawMessage) ([]MissionPattern, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: Mission: %v", ErrConfiguration, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: Mission must be a JSON object", ErrConfiguration)
	}

	var patterns []MissionPattern
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: Mission: %v", ErrConfiguration, err)
		}
		pattern := keyTok.(string)

		var mission string
		if err := dec.Decode(&mission); err != nil {
			return nil, fmt.Errorf("%w: Mission[%q]: value must be a string: %v",
				ErrConfiguration, pattern, err)
		}

		// Mission patterns use search semantics so that entries such as
		// "TEMPO_.*_L2" match the whole family of related short names.
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("%w: Mission[%q]: %v", ErrConfiguration, pattern, err)
		}

		patterns = append(patterns, MissionPattern{Pattern: pattern, Mission: mission, re: re})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: Mission: %v", ErrConfiguration, err)
	}

	return patterns, nil
}
