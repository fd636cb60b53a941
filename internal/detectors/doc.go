// Package detectors implements the pattern detector. It applies a rule set to
// decoded text and reports every structural match with its byte offsets.
package detectors
