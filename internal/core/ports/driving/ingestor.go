package driving

import "context"

// Ingestor is the lifecycle surface of the ingestion scheduler.
//
// The scheduler moves through three states: Idle (constructed, not
// started), Polling (one loop per source), Stopped (terminal). Start
// is guarded against double-spawning loops; Stop cancels every loop
// promptly and waits for them to exit. A stopped scheduler cannot be
// restarted — construct a new one.
type Ingestor interface {
	// Start spawns one polling loop per configured source. Calling
	// Start while already polling is a no-op. Calling Start after
	// Stop returns domain.ErrSchedulerStopped.
	Start(ctx context.Context) error

	// Stop cancels all loops and blocks until they have exited. A
	// loop mid-fetch does not block Stop indefinitely; connectors
	// bound their own I/O. Idempotent.
	Stop() error

	// Running reports whether the scheduler is in the Polling state.
	Running() bool
}
