// Package simulator emulates three categories of backend load: a bounded
// CPU-style job that yields to the scheduler at a fixed cadence, an unstable
// job that fails with a configurable probability, and a batch job that
// processes items strictly in order.
//
// Jobs run on the caller's goroutine. Every wait selects on the context, so
// a canceled or timed-out request stops its job without affecting others.
package simulator
