// Package retry provides a bounded, fixed-delay repeating-attempt driver.
//
// A Retry knows nothing about connections. It keeps calling an action until
// the action tells it to stop or until the attempt budget is used up.
//
// # Tick Semantics
//
// Each call of Attempt is one tick:
//
//  1. If the continuation flag is off, return.
//  2. If the budget is exhausted, log it and return.
//  3. Run the action synchronously. The action calls Enable to decide
//     whether the chain should continue.
//  4. Count the attempt.
//  5. Schedule the next tick after the delay, unconditionally.
//
// Cancellation is cooperative and checked only at tick entry. When the
// action calls Enable(false), the tick scheduled in step 5 still fires and
// returns at step 1; only then is the chain quiescent. Enable(false) called
// between ticks stops the pending timer instead.
//
// The engine does not wait for asynchronous work started by the action, so
// a new tick may run while work from the previous one is still in flight.
//
// A Retry starts disabled. Call Enable(true) before the first Attempt.
//
// # Defaults
//
//	MaxAttempts: 3
//	Delay:       5s (backoff.ConstantBackOff)
package retry
