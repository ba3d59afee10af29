/*
Package events provides an in-memory event broker for session notifications.

The session loop publishes an event whenever the visible warm-up state
changes: a new phase, a progress step, the start of a recovery attempt, the
final Ready or Failed transition, loaded locations and prediction results.
Views subscribe to redraw without polling the session.

# Architecture

	Session loop ──Publish──► eventCh (buffer: 256)
	                               │
	                         broadcast loop
	                               │
	            ┌──────────────────┼──────────────────┐
	            ▼                  ▼                  ▼
	      Subscriber (64)    Subscriber (64)    Subscriber (64)

Delivery to a subscriber never blocks: when its buffer is full the event is
dropped for that subscriber. Every event carries the full WarmupState, so a
view that misses a progress tick simply renders the next one. Stop closes
every subscriber channel.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.SubscribeTypes(events.EventSessionReady, events.EventSessionFailed)
	defer broker.Unsubscribe(sub)

	ev := <-sub

Subscribe receives every event type; SubscribeTypes filters in the
broadcast loop so unwanted events never occupy the subscriber's buffer.
*/
package events
