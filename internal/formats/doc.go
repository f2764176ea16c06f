// Package formats provides implementations of the FormatAdapter
// interface for each supported source kind. Each adapter knows how to
// extract normalised text, with structural locators, from one format.
//
// Adapters are registered with the Registry at startup.
package formats
