// Package piiscan provides the command-line interface for piiscan. It
// configures subcommands (scan, serve, rules, config), resolves settings from
// flags and config files, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/governable/piiscan/cmd/piiscan"
//	func main() { piiscan.Execute() }
package piiscan
