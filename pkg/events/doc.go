/*
Package events provides an in-memory event broker for the Store's typed
notification bus.

A Broker is constructed per Session, never as a process-global singleton,
so concurrent sessions within one process (including a test binary that
opens several data directories) never observe each other's events.
Publish is non-blocking: a full subscriber buffer drops that subscriber's
copy of the event rather than stalling the collection engine.

Emitted event types: create and createRevision (each carrying the
model name separately in Event.Model), and clientFile:lockAcquired
(published by pkg/lock's AcquireWhenFree poll loop on success).
*/
package events
