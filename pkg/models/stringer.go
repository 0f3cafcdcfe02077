package models

// String methods for custom string types.
// These are required for toon serialization, which uses fmt.Stringer.

// Severity
func (s Severity) String() string { return string(s) }

// Confidence
func (c Confidence) String() string { return string(c) }
