// Package merge overlays not-yet-synced queue items onto server lists.
//
// Everything here is a pure function of (server list, queue snapshot,
// filter). Nothing is persisted; callers recompute the merged view whenever
// either input changes.
package merge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"equipqr/internal/queue"
)

// Merged wraps a server entity or a shadow synthesized from a queue item.
type Merged[T any] struct {
	Entity      T
	PendingSync bool
	QueueItemID string
}

// MarshalJSON flattens the entity and adds the pending-sync markers.
func (m Merged[T]) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(m.Entity)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) < 2 || trimmed[0] != '{' {
		return nil, fmt.Errorf("merged entity must encode as an object, got %s", raw)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"_isPendingSync":`)
	if m.PendingSync {
		buf.WriteString("true")
	} else {
		buf.WriteString("false")
	}
	if m.QueueItemID != "" {
		id, err := json.Marshal(m.QueueItemID)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"_queueItemId":`)
		buf.Write(id)
	}
	body := bytes.TrimSpace(trimmed[1 : len(trimmed)-1])
	if len(body) > 0 {
		buf.WriteByte(',')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Source describes how queue items relate to one kind of entity list.
type Source[T any] struct {
	// Types are the item types that synthesize a new entity.
	Types []queue.ItemType
	// Overlays are the item types that patch an existing entity.
	Overlays []queue.ItemType
	// Match reports whether an item belongs to the list being built. It must
	// compare parent ids exactly.
	Match func(item *queue.Item) bool
	// Shadow synthesizes the entity an item will create.
	Shadow func(item *queue.Item) (T, error)
	// Overlay applies item to entity and reports whether it targeted it.
	Overlay func(item *queue.Item, entity *T) bool
	// ID returns the entity id used for de-duplication.
	ID func(entity T) string
	// Resolve fills display fields from cached data. It must not fetch.
	Resolve func(entity *T)
}

// Merge returns shadows for active queue items first, most recent first,
// followed by the server entities with pending overlays applied. No entity
// id appears twice: a shadow whose id the server already returns is dropped.
func Merge[T any](server []T, snapshot []*queue.Item, src Source[T]) []Merged[T] {
	active := activeItems(snapshot, src.Match)

	seen := make(map[string]struct{}, len(server)+len(active))
	serverIDs := make(map[string]struct{}, len(server))
	for _, entity := range server {
		serverIDs[src.ID(entity)] = struct{}{}
	}

	var creates []*queue.Item
	var overlays []*queue.Item
	for _, item := range active {
		switch {
		case slices.Contains(src.Types, item.Type):
			creates = append(creates, item)
		case src.Overlay != nil && slices.Contains(src.Overlays, item.Type):
			overlays = append(overlays, item)
		}
	}

	slices.SortStableFunc(creates, func(a, b *queue.Item) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		switch {
		case a.Seq > b.Seq:
			return -1
		case a.Seq < b.Seq:
			return 1
		default:
			return 0
		}
	})

	out := make([]Merged[T], 0, len(server)+len(creates))
	for _, item := range creates {
		if src.Shadow == nil {
			break
		}
		entity, err := src.Shadow(item)
		if err != nil {
			continue
		}
		id := src.ID(entity)
		if _, dup := serverIDs[id]; dup {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Merged[T]{Entity: entity, PendingSync: true, QueueItemID: item.ID})
	}

	for _, entity := range server {
		id := src.ID(entity)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Merged[T]{Entity: entity})
	}

	// Overlays apply oldest first so the latest pending edit wins.
	for _, item := range overlays {
		for i := range out {
			if src.Overlay(item, &out[i].Entity) {
				out[i].PendingSync = true
				out[i].QueueItemID = item.ID
			}
		}
	}

	if src.Resolve != nil {
		for i := range out {
			src.Resolve(&out[i].Entity)
		}
	}
	return out
}

// activeItems keeps pending and processing items accepted by match, in FIFO order.
func activeItems(snapshot []*queue.Item, match func(*queue.Item) bool) []*queue.Item {
	out := make([]*queue.Item, 0, len(snapshot))
	for _, item := range snapshot {
		if item == nil {
			continue
		}
		if item.Status != queue.StatusPending && item.Status != queue.StatusProcessing {
			continue
		}
		if match != nil && !match(item) {
			continue
		}
		out = append(out, item)
	}
	slices.SortStableFunc(out, func(a, b *queue.Item) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Pending counts merged entries flagged as pending sync.
func Pending[T any](list []Merged[T]) int {
	n := 0
	for _, m := range list {
		if m.PendingSync {
			n++
		}
	}
	return n
}
