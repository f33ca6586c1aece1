package rules

import "errors"

var (
	// ErrConfiguration is returned when the rule document fails structural
	// validation, carries an unsupported version, or contains a pattern that
	// does not compile. It is always detected at load time.
	ErrConfiguration = errors.New("invalid rule document")

	// ErrMissingShortName is returned when none of the configured
	// CollectionShortNamePath candidates resolve against the collection
	// metadata. Callers may recover by treating the short name as empty,
	// in which case rules requiring a specific short name never match.
	ErrMissingShortName = errors.New("collection short name not found")
)
