// Package services contains the core orchestration logic.
//
// The only service is the ingestion Scheduler: it owns the per-source
// polling loops and is the single caller of connectors, pushing
// results through the ledger, normalisers, repository and broker in
// sequence. All other pipeline components are reactive.
package services
