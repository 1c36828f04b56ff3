// Package driving defines the driving (inbound) port interfaces
// through which hosting surfaces (CLI, HTTP API) operate the core.
package driving
