// Package api defines the wire-format types shared by the daemon HTTP API and
// its clients. It translates queue models into transport-friendly DTOs and
// maps queue errors onto HTTP statuses and back, so a client can use
// errors.Is against the queue sentinels regardless of transport.
//
// # Key Types
//
// QueueItem: transport representation of a queue entry.
//
// DaemonStatus: daemon runtime state plus the offline manager status and banner.
//
// ErrorResponse: error body carrying a stable Kind alongside the message.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Timestamps
// use RFC3339 with milliseconds. Payloads are passed through as
// json.RawMessage to avoid double-encoding.
package api
