// Package log records a machine-readable trace of transport lifecycles.
//
// It is separate from operational logging (zap): the trace captures every
// state change, frame, retry tick and error as an Event so that a session
// can be replayed and filtered after the fact.
//
// # Basic Usage
//
//	// For development: trace to the console via zap
//	trace := log.NewZapAdapter(zapLogger)
//
//	// For analysis: write a CBOR trace file
//	trace, _ := log.NewFileLogger("/var/log/redial/client.rlog")
//
//	// Both
//	trace := log.NewMultiLogger(log.NewZapAdapter(zapLogger), fileLogger)
//
//	t, _ := transport.New(cfg, transport.WithTraceLogger(trace))
//
// # Event Types
//
// Events are captured at three layers:
//   - Socket: payload frames (FrameEvent)
//   - Transport: state changes (StateChangeEvent) and owner events (LifecycleEvent)
//   - Retry: reconnect episode ticks (RetryEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Trace files are a sequence of CBOR-encoded events with the .rlog
// extension. The redial-log tool views, filters and exports them.
package log
