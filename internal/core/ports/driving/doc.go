// Package driving defines the interfaces through which external actors
// (CLI, TUI, tests) drive the core services.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package, core/services
package driving
