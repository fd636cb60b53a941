// Package report renders scan results for people (text, table) and machines
// (JSON, SARIF).
package report
