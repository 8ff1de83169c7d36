/*
Package notifyflow routes completion events into load-aware notifications.

# Overview

notifyflow is a Go library for in-process notification routing. Domain
handlers (vision pipelines, web handlers, CLIs) publish completion events
to an event bus; the router deduplicates them, asks a load estimator how
busy the system is, scales message verbosity to match, and emits display,
sound, and accessibility output events for downstream consumers.

The core pieces:
  - event.Bus: pattern-based pub/sub with priority-ordered delivery
  - load.Estimator: maps ambient signals to a discrete load level
  - Router: dedup, load-adaptive detail selection, output emission

# Basic Usage

Wire a bus, an estimator, and the router; producers emit completion
events, consumers subscribe to the output families:

	bus := event.NewBus()
	defer bus.Close()

	router, err := notifyflow.New(bus, load.Fixed(load.LevelLow))
	if err != nil {
	    log.Fatal(err)
	}
	defer router.Close()

	bus.Subscribe(notifyflow.TypeDisplay, event.HandlerFunc(
	    func(ctx context.Context, evt event.Event) ([]event.Event, error) {
	        // render evt.Data().(notifyflow.DisplayPayload)
	        return nil, nil
	    }))

	bus.Emit(ctx, event.NewAny("notification:ocr_update", "vision",
	    notifyflow.CompletionPayload{Pattern: "ocr", Status: "complete"}))

# Load-Adaptive Verbosity

The busier the system, the terser the notification: critical load yields
a bare "Ready.", idle load yields the full summary with confidence. The
same policy drives the accessibility announcement priority (assertive
when quiet, polite when busy) and suppresses sound cues entirely under
critical load.

# Deduplication

Repeat completions for the same pattern and status within the dedup
window collapse into one notification. The record cache is a bounded
LRU; Cleanup (or StartCleanup) purges expired records.

# History Journal

With persistent context enabled the router journals every routing
decision to an in-memory or SQLite-backed store for later inspection.
*/
package notifyflow
