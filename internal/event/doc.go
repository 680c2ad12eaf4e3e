/*
Package event provides a type-safe pub/sub event system for the gateway.

Publishers emit thread and message lifecycle events; subscribers (the SSE
endpoint, loggers) react without direct dependencies. The bus is built on
watermill's gochannel for infrastructure while keeping direct subscriber
calls so payloads keep their Go types.

Publishing:

	event.PublishSync(event.Event{
		Type: event.MessageCreated,
		Data: event.MessageCreatedData{Info: message},
	})

Subscribing:

	unsubscribe := event.SubscribeAll(func(e event.Event) {
		select {
		case eventChan <- e:
		default:
			// drop rather than block the publisher
		}
	})
	defer unsubscribe()

Subscribers called via PublishSync run in the publisher's goroutine and
must not publish re-entrantly or block. For isolation in tests, create a
bus with NewBus and close it when done, or call Reset to clear the
global bus.
*/
package event
