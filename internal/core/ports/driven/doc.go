// Package driven defines the driven (outbound) port interfaces.
//
// Driven ports are implemented by adapters (connectors, storage, the
// broker) and consumed by core services. Core services depend only on
// these interfaces, never on concrete adapters.
package driven
