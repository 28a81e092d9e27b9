// Package main hosts the EquipQR sync CLI entrypoint and command graph.
//
// The Cobra-based command tree talks to a running daemon over its local HTTP
// API when one answers, and otherwise opens the queue store directly. It
// covers queue inspection and maintenance, helpers that queue work order and
// note mutations, merged server-plus-pending views, configuration scaffolding,
// and the daemon process itself.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
