// Package emitter provides safe, logged event dispatch.
//
// An Emitter delivers events to registered listeners synchronously, in
// registration order. A listener that panics is recovered and logged; the
// remaining listeners still run and the emitting component never observes
// the failure.
//
// # Promise-style Dispatch
//
// EmitAsPromise hands async listeners two extra callbacks, complete and
// fail. The first callback invoked settles the returned channel:
//
//	done := em.EmitAsPromise("shutdown", nil)
//	if err := emitter.Await(ctx, done); err != nil {
//	    // a listener failed, or ctx ended first
//	}
//
// Exactly one listener is expected to settle the result. If none does, the
// channel never receives; use Await with a deadline when that matters.
package emitter
