// Package storage is the persistence port for alerting engines.
//
// Each engine instance persists two records under its own namespace:
//   - the engine configuration (single versioned record)
//   - the notification log (ordered, capacity-bounded)
//
// Payloads are opaque JSON owned by the caller; storage only enforces
// the schema version envelope so forward migrations stay possible.
package storage
