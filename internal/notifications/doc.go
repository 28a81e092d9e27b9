// Package notifications delivers sync events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-event toggles let operators hear about permanently failed
// items without being paged for every routine sync pass.
package notifications
