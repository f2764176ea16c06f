// Package services implements the core application logic behind the
// driving ports: the ingestion orchestrator, the chat orchestrator,
// collection tree management and the status event bus.
//
// Services depend only on domain types and driven ports; all I/O goes
// through injected adapters.
package services
