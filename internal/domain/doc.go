// Package domain contains the core entities and value objects of the platoon
// telemetry engine.
//
// It has no dependencies on HTTP, logging or timers and holds only the data
// shapes and the rules that apply directly to them.
//
// # Entities
//
//   - [Event]: a single named, timestamped occurrence with an optional [Payload]
//   - [EventBuffer]: ordered pending events with an advisory flush threshold
//   - [Session]: user id, server-issued session id and the init payload
//   - [FlagSet]: feature flags returned by the handshake
//   - [Outcome]: the classified result of one transport call
package domain
