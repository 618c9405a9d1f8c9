// Package coerce converts parameter values between the types declared in
// node interface metadata. It serialises maps and slices to canonical JSON
// for string parameters, parses JSON strings for structured parameters, and
// diagnoses malformed JSON with actionable hints.
package coerce
