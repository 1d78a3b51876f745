/*
Package events provides an in-memory event broker for document lifecycle
notifications.

The events package implements a lightweight event bus for broadcasting
database events to interested subscribers. It supports asynchronous event
delivery with per-subscriber buffering, enabling loose coupling between the
database pipeline and anything that wants to observe it (metrics collectors,
cache invalidation, future sidecars) without polling the index.

# Architecture

The event system provides non-blocking pub/sub messaging with buffered
channels:

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Topic-agnostic (all events broadcast)    │          │
	│  │  - Non-blocking publish                     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │                                              │          │
	│  │  Document Events:                           │          │
	│  │    - object.created                         │          │
	│  │    - object.updated                         │          │
	│  │    - object.tombstoned                      │          │
	│  │                                              │          │
	│  │  Index Events:                              │          │
	│  │    - index.rebuilt                          │          │
	│  │                                              │          │
	│  │  ACL Events:                                │          │
	│  │    - acl.created                            │          │
	│  │    - acl.updated                            │          │
	│  │                                              │          │
	│  │  Peer Events:                               │          │
	│  │    - peer.resolved                          │          │
	│  │    - peer.unreachable                       │          │
	│  └────────────────────────────────────────────┘          │
	│                                                            │
	└────────────────────────────────────────────────────────────┘

# Core Components

Broker: owns the central event channel and the subscriber set. Start spawns
the broadcast loop; Stop tears it down. Publish never blocks the caller
beyond the central buffer.

Event: an id, a type, a timestamp (stamped at publish when unset), an
optional human message, and a flat string metadata map (collection, key,
peer id — whatever the producer knows).

Subscriber: a buffered channel handed out by Subscribe. A subscriber that
falls behind loses events rather than stalling the broker; Unsubscribe
closes the channel.

# Event Flow

 1. The local database commits a Set/Update/Delete.
 2. It publishes the matching object.* event with collection and key
    metadata.
 3. The broadcast loop fans the event out to every live subscriber whose
    buffer has room.
 4. Slow subscribers miss events; nothing ever blocks the write path.

# Usage

Create and start a broker:

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribe and consume:

	sub := broker.Subscribe()
	go func() {
		for event := range sub {
			fmt.Printf("%s key=%s\n", event.Type, event.Metadata["key"])
		}
	}()

Publish (usually done by the local database, not by hand):

	broker.Publish(&events.Event{
		ID:   uuid.NewString(),
		Type: events.EventObjectCreated,
		Metadata: map[string]string{"collection": "inventory", "key": "42"},
	})

# Design Patterns

Fire-and-Forget Publishing: delivery is best-effort by construction. The
write path's latency never depends on who is listening.

Per-Subscriber Buffering: one slow consumer degrades only its own view,
not the broker or its peers.

# Limitations

  - No persistence: events die with the process.
  - No replay: a late subscriber starts from "now".
  - No topic filtering: subscribers see every event and filter on Type
    themselves.

These are acceptable because the broker only ever supplements the
authoritative state in the object store and index — anything that missed an
event can reconstruct the truth from a scan.

# See Also

  - pkg/localdb for the publishing side
  - pkg/metrics for aggregate counters derived without events
*/
package events
