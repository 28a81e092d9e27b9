// Package domain defines the EquipQR records the offline queue mutates: work
// orders, notes, equipment, and preventative maintenance checklists.
//
// Each queue item type has a typed payload validated with struct tags before
// it is persisted. Payloads translate into backend rows for dispatch and into
// shadow entities for merged views, and they name the cache keys a successful
// sync invalidates.
package domain
