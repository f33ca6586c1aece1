package rules

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Applicability is the match predicate shared by exclusion and override
// rules. A rule applies to a (mission, short name, variable path) triple iff
// every present clause matches; an absent clause is vacuously true.
//
// The dlclark/regexp2 engine is used rather than the standard library
// because the shipped configuration relies on lookaround, for example the
// negative lookahead that keeps coordinate overrides off time variables.
type Applicability struct {
	Mission         string
	ShortNamePath   string
	VariablePattern []string

	missionRE        *regexp2.Regexp
	shortNameRE      *regexp2.Regexp
	variableMatchers []variableMatcher
}

// variableMatcher is one entry of a VariablePattern. Entries without regular
// expression metacharacters are plain paths and must match by exact
// equality, never by substring. Entries with metacharacters are compiled as
// patterns anchored at the start.
type variableMatcher struct {
	literal string
	re      *regexp2.Regexp
}

func (m variableMatcher) matches(variablePath string) bool {
	if m.re == nil {
		return m.literal == variablePath
	}
	return matchPattern(m.re, variablePath)
}

const regexMetacharacters = `.^$*+?()[]{}|\`

func compileApplicability(raw rawApplicability) (Applicability, error) {
	applicability := Applicability{
		Mission:         raw.Mission,
		ShortNamePath:   raw.ShortNamePath,
		VariablePattern: []string(raw.VariablePattern),
	}

	var err error

	if raw.Mission != "" {
		// The mission clause must match the whole resolved mission name.
		applicability.missionRE, err = regexp2.Compile("^(?:"+raw.Mission+")$", regexp2.None)
		if err != nil {
			return Applicability{}, fmt.Errorf("Mission pattern %q: %v", raw.Mission, err)
		}
	}

	if raw.ShortNamePath != "" {
		// Short name patterns match from the start of the short name, so
		// "TEMPO_.*_L2" covers "TEMPO_NO2_L2_NRT" but "NO2_L2" does not.
		applicability.shortNameRE, err = regexp2.Compile("^(?:"+raw.ShortNamePath+")", regexp2.None)
		if err != nil {
			return Applicability{}, fmt.Errorf("ShortNamePath pattern %q: %v", raw.ShortNamePath, err)
		}
	}

	for _, entry := range raw.VariablePattern {
		matcher, err := compileVariableMatcher(entry)
		if err != nil {
			return Applicability{}, err
		}
		applicability.variableMatchers = append(applicability.variableMatchers, matcher)
	}

	return applicability, nil
}

func compileVariableMatcher(entry string) (variableMatcher, error) {
	if !strings.ContainsAny(entry, regexMetacharacters) {
		return variableMatcher{literal: entry}, nil
	}

	re, err := regexp2.Compile("^(?:"+entry+")", regexp2.None)
	if err != nil {
		return variableMatcher{}, fmt.Errorf("VariablePattern entry %q: %v", entry, err)
	}
	return variableMatcher{re: re}, nil
}

// Matches reports whether this applicability covers the given triple. An
// empty mission means the collection's mission could not be resolved; rules
// with a mission clause then never match.
func (a *Applicability) Matches(mission, shortName, variablePath string) bool {
	if a.missionRE != nil {
		if mission == "" || !matchPattern(a.missionRE, mission) {
			return false
		}
	}

	if a.shortNameRE != nil && !matchPattern(a.shortNameRE, shortName) {
		return false
	}

	if len(a.variableMatchers) == 0 {
		return true
	}

	for _, matcher := range a.variableMatchers {
		if matcher.matches(variablePath) {
			return true
		}
	}

	return false
}

// matchPattern evaluates a compiled pattern against a string. regexp2 only
// returns an error when a match timeout is configured, which this package
// never does.
func matchPattern(re *regexp2.Regexp, s string) bool {
	matched, err := re.MatchString(s)
	return err == nil && matched
}
