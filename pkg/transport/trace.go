package transport

import (
	"github.com/redial-io/redial-go/pkg/log"
)

// record stamps and writes a trace event. Callers hold t.mu.
func (t *Transport) record(a *attempt, e log.Event) {
	e.Timestamp = t.clock.Now()
	e.Endpoint = t.cfg.Endpoint
	if a != nil {
		e.ConnectionID = a.id
		e.Generation = a.gen
	}
	t.trace.Log(e)
}

func (t *Transport) recordLifecycle(a *attempt, ev EventType, code int, reason string) {
	t.record(a, log.Event{
		Layer:    log.LayerTransport,
		Category: log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{
			Event:  string(ev),
			Code:   code,
			Reason: reason,
		},
	})
}

func (t *Transport) recordError(a *attempt, layer log.Layer, err error, context string) {
	t.record(a, log.Event{
		Layer:    layer,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}
