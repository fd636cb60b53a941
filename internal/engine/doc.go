// Package engine is the detection engine. It runs the pattern detector and
// the statistical detector over the same text, scores and merges their
// findings, and returns one ordered report per text or per line. It also
// walks directories and scans files through the extract package.
//
// This package is internal; external consumers should use the stable facade
// in pkg/core.
package engine
