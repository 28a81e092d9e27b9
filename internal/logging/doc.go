// Package logging assembles structured slog loggers and formatting helpers used
// across the EquipQR sync services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so queue and sync code can tag
// log lines with the organization, user, and queue item they concern. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
