// Package ports defines the interfaces (ports) that connect the engine in
// internal/app to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Transport]: posts JSON bodies to the telemetry service
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//   - [Clock]: wall time and periodic tickers for the heartbeat
//   - [Logger]: structured logging abstraction
//
// The engine depends only on these interfaces. Adapters in
// internal/adapters implement them with net/http and the system clock;
// tests replace them with fakes for deterministic runs.
package ports
