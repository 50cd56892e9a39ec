// Package platoon provides an embeddable client for the platoon telemetry service.
//
// A Client batches application events, opens a session with the service,
// caches server-issued feature flags and uploads buffered events from a
// background heartbeat. A disabled client allocates nothing and sends nothing.
//
// # Basic Usage
//
//	client, err := platoon.New(platoon.Config{
//	    AccessToken: "your-access-token",
//	    UserID:      "player-42",
//	    AppVersion:  "1.4.0",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.EnableFlagRetrieval()
//	client.StartSession(func() {
//	    if client.IsFlagActive("new_shop") {
//	        // ...
//	    }
//	})
//
//	client.AddEvent("level_complete", map[string]any{"level": 3})
//
//	// Sends everything still buffered, then releases the session.
//	if err := client.Close(); err != nil {
//	    log.Printf("close: %v", err)
//	}
//
// Events added before the session is ready are dropped. Use the ready
// callback, or [Client.IsReady], to know when events are accepted.
//
// # Delivery
//
// Events are sent when the buffer reaches [Config.FlushThreshold], on every
// heartbeat tick, on [Client.Flush] and on [Client.Close]. There is no
// retry: a batch rejected by the server is lost, and a connection failure
// disables the client until [Client.Activate] is called with true.
// Batches sent concurrently are not ordered relative to each other.
//
// # Event Handling
//
// To receive notifications about client operations, implement [EventHandler]
// (embedding [BaseEventHandler] for defaults) and pass it via [WithEventHandler].
//
// # Plugins
//
// A [Plugin] is started once the session is ready and stopped when the client
// closes. It receives an [EventSink] to add its own events:
//
//	import "github.com/bft-labs/platoon/plugins/eventfile"
//
//	client, err := platoon.New(cfg, eventfile.WithEventFile("/var/log/game/events.ndjson"))
package platoon
