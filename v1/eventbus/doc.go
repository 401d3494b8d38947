// Package eventbus propagates version lock events. The engine publishes a
// locked or unlocked event whenever a lock row is actually created or
// removed; subscribers (other nodes, admin lock indicators, audit tooling)
// receive them keyed by version identity. In-memory, Redis, NATS and Kafka
// backends are provided, plus SSE and WebSocket handlers for streaming
// events to browsers.
package eventbus
