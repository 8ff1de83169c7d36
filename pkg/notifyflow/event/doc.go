// Package event provides the in-process event primitives for notifyflow.
//
// This package implements the messaging backbone the notification router
// is built on:
//   - Event interface with correlation and causation tracking
//   - Colon-delimited hierarchical event types with wildcard patterns
//   - Bus for priority-ordered pub/sub fan-out with per-handler isolation
//   - Registry for event-family schema validation
//
// # Event Types
//
// Events use hierarchical types with colon notation:
//
//	notification:ocr_update
//	output:notification:display
//	output:sound:play
//
// # Wildcards
//
// Subscription patterns match whole segments:
//
//	notification:*          - matches notification:<anything>
//	output:*                - matches output:sound:play (trailing * spans
//	                          the remaining suffix)
//	*:status                - matches vision:status, audio:status, ...
//
// # Delivery
//
// Emit dispatches synchronously in the caller's goroutine. Matching
// subscriptions are invoked in descending priority order; ties are broken
// by registration order. A handler error or panic is logged and never
// prevents delivery to the remaining handlers. Handlers may return derived
// events; the bus re-emits them with a depth guard so a misbehaving
// handler cannot create an unbounded cascade.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	defer bus.Close()
//
//	sub, err := bus.Subscribe("notification:*", handler,
//		event.WithSubscriptionPriority(event.PriorityHigh))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sub.Unsubscribe()
//
//	evt := event.NewAny("notification:ocr_update", "vision", payload)
//	bus.Emit(ctx, evt)
package event
