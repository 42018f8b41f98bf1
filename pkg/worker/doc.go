// Package worker runs processing passes on a cron schedule.
//
// A Worker wraps a PassFunc, typically a closure around
// Processor.ProcessAssetRequests, and invokes it on every tick of its
// schedule. Passes never overlap: a tick that arrives while the previous
// pass is still running is skipped, and RunOnce refuses to start while a
// scheduled pass is in flight.
//
// Schedules use the standard five-field cron syntax or descriptors such as
// "@every 1m" and "@hourly".
//
// # Shutdown
//
// Stop cancels the context handed to the running pass and waits for it to
// return, so a service can call Stop from its signal handler and exit
// once it returns.
package worker
