// Package core provides a small, stable facade over piiscan's internal
// detection engine for external integrations. It re-exports a narrow API
// surface so other programs can depend on a stable import path without
// importing internal packages.
//
// Example:
//
//	rep, err := core.Scan(ctx, "Contact: jane@example.com")
//	if err != nil { /* handle */ }
//	_ = core.MarshalReport(os.Stdout, rep)
package core
