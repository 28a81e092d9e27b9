// Package daemon coordinates the long-running EquipQR sync process.
//
// It wires the queue store, the offline manager, the connectivity monitor, and
// a cron-driven sync schedule into a single lifecycle with flock-based locking
// to prevent multiple instances. The daemon exposes the queue over a small
// local HTTP API, streams status changes over a websocket, and owns the test
// notification hook.
//
// Keep orchestration logic here: queue semantics live in the offline package
// while the daemon focuses on startup, shutdown, and high level coordination.
package daemon
